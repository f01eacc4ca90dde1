package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"nse_tracker/internal/logger"
	"nse_tracker/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoPrice means the source answered but had no usable price.
	ErrNoPrice = errors.New("no price available")
	// ErrUnknownSymbol means the source does not list the symbol at all.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// PriceSource is anything that can quote the latest price of an
// exchange-qualified symbol. Yahoo and Alpaca implement it, and tests
// swap in fakes without touching the code that uses it.
type PriceSource interface {
	Name() string
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// FetcherOptions tunes how a Fetcher talks to its source.
type FetcherOptions struct {
	ExchangeSuffix string        // Appended to bare symbols, e.g. ".NS"
	Timeout        time.Duration // Per attempt
	Retries        int           // Extra attempts after the first
	RetryInterval  time.Duration // Initial backoff between attempts
}

// Fetcher wraps a PriceSource with suffixing, timeouts and retries, and turns
// every failure into an unavailable quote. Callers never see a fetch error.
type Fetcher struct {
	source PriceSource
	opts   FetcherOptions
}

// NewFetcher builds a Fetcher, filling in defaults for zero options.
func NewFetcher(source PriceSource, opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	return &Fetcher{source: source, opts: opts}
}

// Qualify appends the exchange suffix unless the symbol already carries it.
func (f *Fetcher) Qualify(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	suffix := strings.ToUpper(f.opts.ExchangeSuffix)
	if suffix == "" || strings.HasSuffix(symbol, suffix) {
		return symbol
	}
	return symbol + suffix
}

// Quote looks up the price of a bare symbol.
func (f *Fetcher) Quote(ctx context.Context, symbol string) models.Quote {
	qualified := f.Qualify(symbol)

	price, err := f.fetch(ctx, qualified)
	if err != nil {
		log.Printf("Warning: Price unavailable for %s via %s: %v", qualified, f.source.Name(), err)
		return models.UnavailableQuote(qualified)
	}

	logger.Debugf("Price %s = %s (%s)", qualified, price.StringFixed(2), f.source.Name())
	return models.Quote{
		Symbol:    qualified,
		Price:     price,
		Available: true,
		Timestamp: time.Now(),
	}
}

func (f *Fetcher) fetch(ctx context.Context, symbol string) (decimal.Decimal, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.opts.RetryInterval
	policy.MaxInterval = f.opts.RetryInterval * 10

	operation := func() (decimal.Decimal, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()

		price, err := f.source.Price(attemptCtx, symbol)
		if err != nil {
			if errors.Is(err, ErrUnknownSymbol) || errors.Is(err, ErrNoPrice) {
				return decimal.Zero, backoff.Permanent(err)
			}
			return decimal.Zero, err
		}
		if !price.IsPositive() {
			return decimal.Zero, backoff.Permanent(fmt.Errorf("%w: got %s", ErrNoPrice, price))
		}
		return price, nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Debugf("Retrying price for %s in %s after: %v", symbol, wait, err)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(f.opts.Retries+1)),
		backoff.WithNotify(notify))
}
