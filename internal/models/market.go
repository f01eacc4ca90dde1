package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the outcome of a single price lookup.
// An unavailable quote always carries a zero Price.
type Quote struct {
	Symbol    string          `json:"symbol"` // Exchange-qualified symbol that was queried
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	Timestamp time.Time       `json:"timestamp"`
}

// UnavailableQuote builds the substitute used when a lookup fails.
func UnavailableQuote(symbol string) Quote {
	return Quote{Symbol: symbol, Price: decimal.Zero, Timestamp: time.Now()}
}
