package alpaca

import (
	"context"
	"fmt"

	"nse_tracker/internal/market"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// tradeClient is the slice of the Alpaca market-data client we depend on.
type tradeClient interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// Provider quotes the latest trade price from Alpaca market data.
// Credentials are picked up by the SDK from APCA_API_KEY_ID / APCA_API_SECRET_KEY.
type Provider struct {
	mdClient tradeClient
}

// Ensure Provider implements the interface
var _ market.PriceSource = (*Provider)(nil)

// NewProvider returns a new Alpaca provider.
func NewProvider() *Provider {
	return &Provider{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{}),
	}
}

func (p *Provider) Name() string { return "alpaca" }

// Price fetches the latest trade price for symbol.
// The SDK call has no context, so it runs in a goroutine and ctx bounds the wait.
func (p *Provider) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	type result struct {
		trade *marketdata.Trade
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		trade, err := p.mdClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		ch <- result{trade, err}
	}()

	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return decimal.Zero, r.err
		}
		if r.trade == nil {
			return decimal.Zero, fmt.Errorf("%w: no trade found for %s", market.ErrNoPrice, symbol)
		}
		return decimal.NewFromFloat(r.trade.Price), nil
	}
}
