package tracker

import (
	"context"
	"log"
	"time"

	"nse_tracker/internal/logger"
	"nse_tracker/internal/market"
	"nse_tracker/internal/models"
	"nse_tracker/internal/report"
	"nse_tracker/internal/storage"
	"nse_tracker/internal/symbols"
	"nse_tracker/internal/valuation"

	"golang.org/x/sync/errgroup"
)

// Quoter resolves a bare symbol to a quote and never fails.
// *market.Fetcher satisfies it.
type Quoter interface {
	Quote(ctx context.Context, symbol string) models.Quote
}

var _ Quoter = (*market.Fetcher)(nil)

// SymbolSource supplies the selectable symbol universe.
// *symbols.Loader satisfies it.
type SymbolSource interface {
	Symbols(ctx context.Context) []string
	Search(ctx context.Context, query string, limit int) []string
}

var _ SymbolSource = (*symbols.Loader)(nil)

// Options configures a Tracker.
type Options struct {
	Workers        int // Parallel price lookups per refresh; 1 means sequential
	CurrencySymbol string
}

// Tracker runs the refresh pipeline: snapshot the store, fetch every price,
// value each (record, quote) pair and aggregate the results.
type Tracker struct {
	quoter    Quoter
	symbols   SymbolSource
	sessions  *storage.Sessions
	formatter report.Formatter
	workers   int
	commands  []CommandDoc
}

// New wires a Tracker.
func New(quoter Quoter, symbolSource SymbolSource, sessions *storage.Sessions, opts Options) *Tracker {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Tracker{
		quoter:    quoter,
		symbols:   symbolSource,
		sessions:  sessions,
		formatter: report.NewFormatter(opts.CurrencySymbol),
		workers:   opts.Workers,
		commands:  defaultCommands(),
	}
}

// Sessions exposes the session registry to the front-ends.
func (t *Tracker) Sessions() *storage.Sessions { return t.sessions }

// Symbols exposes the symbol source to the front-ends.
func (t *Tracker) Symbols() SymbolSource { return t.symbols }

// Formatter returns the money formatter used in reports.
func (t *Tracker) Formatter() report.Formatter { return t.formatter }

// AddPosition appends a record to the session's store.
func (t *Tracker) AddPosition(s *storage.Session, p models.Position) (models.Position, error) {
	added, err := s.Store.Add(p)
	if err != nil {
		log.Printf("Warning: Rejected position for session %s: %v", s.ID, err)
		return added, err
	}
	log.Printf("INFO: [%s] Added %s %s x%d @ %s (SL %s, Target %s)", s.ID, added.Side, added.Symbol,
		added.Quantity, added.EntryPrice.StringFixed(2), added.StopLoss.StringFixed(2), added.TargetPrice.StringFixed(2))
	return added, nil
}

// Refresh values every position in the session. Refreshes of the same session
// are serialized; the store is only read through a snapshot.
func (t *Tracker) Refresh(ctx context.Context, s *storage.Session) models.Report {
	var r models.Report
	s.Serialize(func() {
		r = t.Evaluate(ctx, s.Store.All())
	})
	return r
}

// Evaluate fetches all prices first, then runs the pure valuation over the results.
func (t *Tracker) Evaluate(ctx context.Context, positions []models.Position) models.Report {
	start := time.Now()

	quotes := t.fetchQuotes(ctx, positions)

	valued := make([]models.ValuedPosition, len(positions))
	for i, p := range positions {
		valued[i] = valuation.Value(p, quotes[i])
	}

	summary := valuation.Aggregate(valued)
	logger.Debugf("Refreshed %d position(s) in %s", len(positions), time.Since(start).Round(time.Millisecond))

	return models.Report{
		Positions:   valued,
		Summary:     summary,
		GeneratedAt: time.Now(),
	}
}

// fetchQuotes returns one quote per position, in position order.
func (t *Tracker) fetchQuotes(ctx context.Context, positions []models.Position) []models.Quote {
	quotes := make([]models.Quote, len(positions))

	if t.workers <= 1 {
		for i, p := range positions {
			quotes[i] = t.quoter.Quote(ctx, p.Symbol)
		}
		return quotes
	}

	// Quote never fails, so the group only bounds concurrency.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, p := range positions {
		g.Go(func() error {
			quotes[i] = t.quoter.Quote(gctx, p.Symbol)
			return nil
		})
	}
	g.Wait()

	return quotes
}
