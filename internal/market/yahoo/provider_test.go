package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nse_tracker/internal/market"

	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/v8/finance/chart/RELIANCE.NS", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"RELIANCE.NS","currency":"INR","regularMarketPrice":2950.55}}],"error":null}}`))
	})
	mux.HandleFunc("/v8/finance/chart/NOPRICE.NS", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"NOPRICE.NS"}}],"error":null}}`))
	})
	mux.HandleFunc("/v8/finance/chart/FLAKY.NS", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/v8/finance/chart/GARBAGE.NS", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPrice_Success(t *testing.T) {
	p := NewProvider(newTestServer(t).URL)

	price, err := p.Price(context.Background(), "RELIANCE.NS")
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(2950.55)) {
		t.Errorf("Expected 2950.55, got %s", price)
	}
}

func TestPrice_UnknownSymbol(t *testing.T) {
	p := NewProvider(newTestServer(t).URL)

	_, err := p.Price(context.Background(), "DELISTED.NS")
	if !errors.Is(err, market.ErrUnknownSymbol) {
		t.Errorf("Expected ErrUnknownSymbol, got %v", err)
	}
}

func TestPrice_MissingPrice(t *testing.T) {
	p := NewProvider(newTestServer(t).URL)

	_, err := p.Price(context.Background(), "NOPRICE.NS")
	if !errors.Is(err, market.ErrNoPrice) {
		t.Errorf("Expected ErrNoPrice, got %v", err)
	}
}

func TestPrice_TransientErrors(t *testing.T) {
	p := NewProvider(newTestServer(t).URL)

	for _, sym := range []string{"FLAKY.NS", "GARBAGE.NS"} {
		_, err := p.Price(context.Background(), sym)
		if err == nil {
			t.Errorf("Expected error for %s", sym)
			continue
		}
		if errors.Is(err, market.ErrUnknownSymbol) || errors.Is(err, market.ErrNoPrice) {
			t.Errorf("%s should be a retryable error, got %v", sym, err)
		}
	}
}

func TestPrice_ThroughFetcher(t *testing.T) {
	f := market.NewFetcher(NewProvider(newTestServer(t).URL), market.FetcherOptions{ExchangeSuffix: ".NS"})

	q := f.Quote(context.Background(), "reliance")
	if !q.Available || q.Symbol != "RELIANCE.NS" {
		t.Errorf("Expected available RELIANCE.NS quote, got %+v", q)
	}

	q = f.Quote(context.Background(), "DELISTED")
	if q.Available || !q.Price.IsZero() {
		t.Errorf("Expected unavailable zero quote, got %+v", q)
	}
}
