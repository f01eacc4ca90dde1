package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nse_tracker/internal/market"

	"github.com/shopspring/decimal"
)

// Yahoo rejects requests without a browser-like agent.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) nse-tracker"

// chartResponse is the partial schema of /v8/finance/chart.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64    `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Provider quotes exchange-qualified symbols (e.g. "RELIANCE.NS") from Yahoo Finance.
type Provider struct {
	baseURL string
	client  *http.Client
}

// Ensure Provider implements the interface
var _ market.PriceSource = (*Provider)(nil)

// NewProvider returns a provider for the given API base URL.
func NewProvider(baseURL string) *Provider {
	return &Provider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Provider) Name() string { return "yahoo" }

// Price returns regularMarketPrice for symbol.
func (p *Provider) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", p.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, fmt.Errorf("%w: %s", market.ErrUnknownSymbol, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("yahoo status %s: %s", resp.Status, body)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return decimal.Zero, fmt.Errorf("decode chart for %s: %v", symbol, err)
	}

	if chart.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("%w: %s (%s)", market.ErrUnknownSymbol, symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || chart.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", market.ErrNoPrice, symbol)
	}

	return decimal.NewFromFloat(*chart.Chart.Result[0].Meta.RegularMarketPrice), nil
}
