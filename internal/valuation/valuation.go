// Package valuation turns position records and prices into P/L, risk and
// reward figures. Everything here is pure and safe to call concurrently.
package valuation

import (
	"nse_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// Valuate computes the metrics of a position at the given price.
// A zero price stands in for "unknown". MaxLoss and TargetProfit are
// magnitudes and are floored at zero; PL keeps its sign.
func Valuate(p models.Position, price decimal.Decimal) models.Metrics {
	qty := decimal.NewFromInt(p.Quantity)

	var pl, maxLoss, targetProfit decimal.Decimal
	if p.Side == models.Short {
		pl = p.EntryPrice.Sub(price).Mul(qty)
		maxLoss = p.StopLoss.Sub(p.EntryPrice).Mul(qty)
		targetProfit = p.EntryPrice.Sub(p.TargetPrice).Mul(qty)
	} else {
		pl = price.Sub(p.EntryPrice).Mul(qty)
		maxLoss = p.EntryPrice.Sub(p.StopLoss).Mul(qty)
		targetProfit = p.TargetPrice.Sub(p.EntryPrice).Mul(qty)
	}

	return models.Metrics{
		PL:           pl,
		MaxLoss:      decimal.Max(decimal.Zero, maxLoss),
		TargetProfit: decimal.Max(decimal.Zero, targetProfit),
	}
}

// Value joins a position with its quote. Unavailable quotes value at zero.
func Value(p models.Position, q models.Quote) models.ValuedPosition {
	price := decimal.Zero
	if q.Available {
		price = q.Price
	}
	return models.ValuedPosition{
		Position:       p,
		Metrics:        Valuate(p, price),
		CurrentPrice:   price,
		PriceAvailable: q.Available,
	}
}

// Aggregate sums the metrics of every valued position.
// Positions without a price are included at their zero-price valuation.
func Aggregate(valued []models.ValuedPosition) models.Summary {
	s := models.Summary{
		Count:             len(valued),
		TotalPL:           decimal.Zero,
		TotalRisk:         decimal.Zero,
		TotalTargetProfit: decimal.Zero,
	}
	for _, v := range valued {
		s.TotalPL = s.TotalPL.Add(v.PL)
		s.TotalRisk = s.TotalRisk.Add(v.MaxLoss)
		s.TotalTargetProfit = s.TotalTargetProfit.Add(v.TargetProfit)
	}
	return s
}
