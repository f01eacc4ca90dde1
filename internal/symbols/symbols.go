// Package symbols loads the list of selectable NSE symbols from a remote CSV.
// The list is a convenience for the front-ends; valuation never depends on it.
package symbols

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const symbolColumn = "symbol"

var errNoSymbolColumn = errors.New("csv has no Symbol column")

// Loader fetches and caches the symbol universe.
type Loader struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu        sync.Mutex
	cached    []string
	fetchedAt time.Time
}

// NewLoader returns a loader that refreshes its cache after ttl.
func NewLoader(url string, ttl time.Duration) *Loader {
	return &Loader{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Symbols returns the cached list, fetching it when missing or stale.
// On a failed fetch it keeps serving the previous list, or an empty one if
// nothing was ever loaded, so callers fall back to free-text entry.
func (l *Loader) Symbols(ctx context.Context) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && time.Since(l.fetchedAt) < l.ttl {
		return l.cached
	}

	list, err := l.fetch(ctx)
	if err != nil {
		log.Printf("Warning: Could not load symbol list from %s: %v", l.url, err)
		if l.cached != nil {
			return l.cached
		}
		return []string{}
	}

	log.Printf("INFO: Loaded %d symbols", len(list))
	l.cached = list
	l.fetchedAt = time.Now()
	return l.cached
}

// Search returns up to limit symbols containing query (case-insensitive),
// exact matches first.
func (l *Loader) Search(ctx context.Context, query string, limit int) []string {
	all := l.Symbols(ctx)
	q := strings.ToUpper(strings.TrimSpace(query))

	var exact, partial []string
	for _, s := range all {
		switch {
		case q == "":
			partial = append(partial, s)
		case s == q:
			exact = append(exact, s)
		case strings.Contains(s, q):
			partial = append(partial, s)
		}
	}

	results := append(exact, partial...)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (l *Loader) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return Parse(resp.Body)
}

// Parse reads a CSV with a header row and returns the sorted, de-duplicated
// values of its Symbol column.
func Parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, h := range header {
		// Strip a UTF-8 BOM on the first column
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), symbolColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errNoSymbolColumn
	}

	seen := make(map[string]bool)
	list := []string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(record[col]))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		list = append(list, sym)
	}

	sort.Strings(list)
	return list, nil
}
