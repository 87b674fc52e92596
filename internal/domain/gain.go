package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RealizedGainEvent is the result of matching (part of) a sell against one
// lot. Amounts carry full precision.
type RealizedGainEvent struct {
	Symbol       string
	SellID       string
	LotID        string
	OpenDate     time.Time
	CloseDate    time.Time
	Quantity     decimal.Decimal
	Currency     string
	OpenPrice    decimal.Decimal
	ClosePrice   decimal.Decimal
	OpenRate     decimal.Decimal
	CloseRate    decimal.Decimal
	ProceedsRSD  decimal.Decimal
	CostBasisRSD decimal.Decimal
	GainRSD      decimal.Decimal
	TaxExempt    bool
}

// UnmatchedSell is the part of a sell that no open lot covered.
type UnmatchedSell struct {
	Trade    *Transaction
	Quantity decimal.Decimal
}

// GainsResult is the output of a gains computation.
type GainsResult struct {
	Events    []RealizedGainEvent
	Unmatched []UnmatchedSell
	Warnings  []Warning
}

// TotalGain sums the gains of all events.
func (r *GainsResult) TotalGain() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Events {
		total = total.Add(e.GainRSD)
	}
	return total
}

// HeldAtLeast reports whether the position was held for years full years.
func HeldAtLeast(openDate, closeDate time.Time, years int) bool {
	if years <= 0 {
		return false
	}
	return !Day(closeDate).Before(Day(openDate).AddDate(years, 0, 0))
}

// MonthLayout formats the month of an activity summary.
const MonthLayout = "2006-01"

// MonthlyActivity sums one symbol's realized gains and dividends in a
// calendar month. Sales counts sells, not matched lots.
type MonthlyActivity struct {
	Month        string
	Symbol       string
	Sales        int
	GainRSD      decimal.Decimal
	DividendsRSD decimal.Decimal
}
