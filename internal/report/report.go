// Package report renders refresh results as text for the chat front-end and
// as display rows for the web dashboard.
package report

import (
	"fmt"
	"strings"
	"time"

	"nse_tracker/internal/config"
	"nse_tracker/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const emptyMessage = "No positions added yet."

// Formatter renders amounts with a fixed currency prefix.
type Formatter struct {
	Currency string
}

// NewFormatter returns a Formatter for the given currency symbol.
func NewFormatter(currency string) Formatter {
	return Formatter{Currency: currency}
}

// Money formats d as prefix + comma-grouped amount with two decimals, e.g. "₹1,234.50".
// Negative amounts keep the sign after the prefix ("₹-70.00").
func (f Formatter) Money(d decimal.Decimal) string {
	return f.Currency + Amount(d)
}

// Amount formats d with thousands separators and two decimals.
func Amount(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

// Timestamp renders t in exchange time, e.g. "15 Jan 2024 09:30:00 IST".
func Timestamp(t time.Time) string {
	return t.In(config.IstLoc).Format("02 Jan 2006 15:04:05 MST")
}

// Price formats a quote price, or "n/a" when it was unavailable.
func (f Formatter) Price(v models.ValuedPosition) string {
	if !v.PriceAvailable {
		return "n/a"
	}
	return Amount(v.CurrentPrice)
}

// Summary renders the three portfolio figures.
func (f Formatter) Summary(s models.Summary) string {
	var sb strings.Builder
	sb.WriteString("📊 *PORTFOLIO SUMMARY*\n")
	sb.WriteString(fmt.Sprintf("Total P/L: %s %s\n", f.Money(s.TotalPL), plIcon(s.TotalPL)))
	sb.WriteString(fmt.Sprintf("Total Risk (Max Loss): %s\n", f.Money(s.TotalRisk)))
	sb.WriteString(fmt.Sprintf("Total Target Profit: %s\n", f.Money(s.TotalTargetProfit)))
	return sb.String()
}

// Positions renders the open-positions table followed by the summary.
func (f Formatter) Positions(r models.Report) string {
	if len(r.Positions) == 0 {
		return "ℹ️ " + emptyMessage
	}

	var sb strings.Builder
	sb.WriteString(f.Summary(r.Summary))
	sb.WriteString("\n📋 *OPEN POSITIONS*\n")

	for i, v := range r.Positions {
		sb.WriteString(fmt.Sprintf("%d. *%s* %s x%d\n", i+1, v.Symbol, v.Side, v.Quantity))
		sb.WriteString(fmt.Sprintf("   Entry: %s | SL: %s | Target: %s\n",
			Amount(v.EntryPrice), Amount(v.StopLoss), Amount(v.TargetPrice)))
		sb.WriteString(fmt.Sprintf("   Current: %s | P/L: %s %s\n",
			f.Price(v), f.Money(v.PL), plIcon(v.PL)))
		sb.WriteString(fmt.Sprintf("   Max Loss: %s | Target Profit: %s\n",
			f.Money(v.MaxLoss), f.Money(v.TargetProfit)))
	}

	var missing []string
	for _, v := range r.Positions {
		if !v.PriceAvailable {
			missing = append(missing, v.Symbol)
		}
	}
	if len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ No live price for %s; valued at 0.\n", strings.Join(missing, ", ")))
	}
	sb.WriteString(fmt.Sprintf("\n🕒 Updated %s\n", Timestamp(r.GeneratedAt)))

	return sb.String()
}

func plIcon(d decimal.Decimal) string {
	switch {
	case d.IsPositive():
		return "🟢"
	case d.IsNegative():
		return "🔴"
	}
	return "⚪"
}

// Row is a display-ready line of the dashboard table.
type Row struct {
	Symbol         string
	Side           string
	Quantity       int64
	Entry          string
	StopLoss       string
	Target         string
	Current        string
	PL             string
	MaxLoss        string
	TargetProfit   string
	Negative       bool
	PriceAvailable bool
}

// Rows converts valued positions into display rows.
func (f Formatter) Rows(valued []models.ValuedPosition) []Row {
	rows := make([]Row, 0, len(valued))
	for _, v := range valued {
		rows = append(rows, Row{
			Symbol:         v.Symbol,
			Side:           string(v.Side),
			Quantity:       v.Quantity,
			Entry:          Amount(v.EntryPrice),
			StopLoss:       Amount(v.StopLoss),
			Target:         Amount(v.TargetPrice),
			Current:        f.Price(v),
			PL:             f.Money(v.PL),
			MaxLoss:        f.Money(v.MaxLoss),
			TargetProfit:   f.Money(v.TargetProfit),
			Negative:       v.PL.IsNegative(),
			PriceAvailable: v.PriceAvailable,
		})
	}
	return rows
}
