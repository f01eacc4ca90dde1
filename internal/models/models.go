package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Validation errors returned when a Position breaks one of its invariants.
var (
	ErrBlankSymbol     = errors.New("symbol must not be blank")
	ErrInvalidSide     = errors.New("side must be LONG or SHORT")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNegativePrice   = errors.New("prices must not be negative")
	ErrPriceOutOfRange = errors.New("price out of range")
)

// Price bounds: below 1e12 with at most 8 decimal places.
const (
	maxPriceIntDigits = 12
	minPriceExponent  = -8
)

// ParseSide accepts "long"/"short" in any case, plus the "buy"/"sell" aliases.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY", "L":
		return Long, nil
	case "SHORT", "SELL", "S":
		return Short, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidSide, s)
}

// Position is a user-entered trade record.
// Entry, stop and target are independent inputs: a long with its stop above
// entry is representable and simply values to a zero max loss.
type Position struct {
	Symbol      string          `json:"symbol"`       // Bare exchange symbol (e.g., "RELIANCE")
	Side        Side            `json:"side"`         // LONG or SHORT
	Quantity    int64           `json:"quantity"`     // Number of shares, at least 1
	EntryPrice  decimal.Decimal `json:"entry_price"`  // Price the position was opened at
	StopLoss    decimal.Decimal `json:"stop_loss"`    // Planned exit on the losing side
	TargetPrice decimal.Decimal `json:"target_price"` // Planned exit on the winning side
}

// Normalize trims the symbol and upper-cases it.
func (p Position) Normalize() Position {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	return p
}

// Validate checks the record invariants.
func (p Position) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return ErrBlankSymbol
	}
	if p.Side != Long && p.Side != Short {
		return fmt.Errorf("%w: got %q", ErrInvalidSide, p.Side)
	}
	if p.Quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, p.Quantity)
	}
	if p.EntryPrice.IsNegative() || p.StopLoss.IsNegative() || p.TargetPrice.IsNegative() {
		return ErrNegativePrice
	}
	for _, d := range []decimal.Decimal{p.EntryPrice, p.StopLoss, p.TargetPrice} {
		if !priceInRange(d) {
			return ErrPriceOutOfRange
		}
	}
	return nil
}

// priceInRange inspects the coefficient and exponent only. Comparing against
// a bound with Cmp would rescale "1e400000000" to a common exponent first.
func priceInRange(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if exp < minPriceExponent || exp > maxPriceIntDigits {
		return false
	}
	if d.IsZero() {
		return true
	}
	c := d.Coefficient()
	digits := len(c.Abs(c).String())
	return digits+exp <= maxPriceIntDigits
}

// Metrics are the per-position figures produced by the valuation engine.
type Metrics struct {
	PL           decimal.Decimal `json:"pl"`
	MaxLoss      decimal.Decimal `json:"max_loss"`
	TargetProfit decimal.Decimal `json:"target_profit"`
}

// ValuedPosition is a Position joined with its current price and metrics.
// It is derived on every refresh and never stored.
type ValuedPosition struct {
	Position
	Metrics
	CurrentPrice   decimal.Decimal `json:"current_price"`
	PriceAvailable bool            `json:"price_available"`
}

// Summary holds portfolio-wide totals.
type Summary struct {
	Count             int             `json:"count"`
	TotalPL           decimal.Decimal `json:"total_pl"`
	TotalRisk         decimal.Decimal `json:"total_risk"`
	TotalTargetProfit decimal.Decimal `json:"total_target_profit"`
}

// Report is the output of one refresh cycle.
type Report struct {
	Positions   []ValuedPosition `json:"positions"`
	Summary     Summary          `json:"summary"`
	GeneratedAt time.Time        `json:"generated_at"`
}
