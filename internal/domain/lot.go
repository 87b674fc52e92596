package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is the unconsumed quantity of a single buy.
type Lot struct {
	// ID is the identity of the opening trade.
	ID                string
	Symbol            string
	OpenDate          time.Time
	OpenPrice         decimal.Decimal
	Currency          string
	RemainingQuantity decimal.Decimal
}

// LotLink points a closing trade at the lot it closes.
type LotLink struct {
	OpenDate  time.Time
	OpenPrice decimal.Decimal
}

func (l LotLink) matches(lot *Lot) bool {
	return Day(lot.OpenDate).Equal(Day(l.OpenDate)) &&
		lot.OpenPrice.Round(4).Equal(l.OpenPrice.Round(4))
}

// LotFill is the part of a lot consumed by a sell. Lot is a snapshot taken
// before consumption.
type LotFill struct {
	Lot      Lot
	Quantity decimal.Decimal
	Linked   bool
}

// LotBook keeps one FIFO queue of open lots per symbol.
type LotBook struct {
	queues map[string][]*Lot
}

// NewLotBook creates an empty book.
func NewLotBook() *LotBook {
	return &LotBook{queues: make(map[string][]*Lot)}
}

// Open appends a lot to the back of its symbol's queue. Callers open lots in
// execution order.
func (b *LotBook) Open(lot Lot) {
	if !lot.RemainingQuantity.IsPositive() {
		return
	}
	l := lot
	b.queues[lot.Symbol] = append(b.queues[lot.Symbol], &l)
}

// Lots returns copies of the open lots for symbol, oldest first.
func (b *LotBook) Lots(symbol string) []Lot {
	queue := b.queues[symbol]
	out := make([]Lot, 0, len(queue))
	for _, l := range queue {
		out = append(out, *l)
	}
	return out
}

// Remaining returns the open quantity for symbol.
func (b *LotBook) Remaining(symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.queues[symbol] {
		total = total.Add(l.RemainingQuantity)
	}
	return total
}

// Consume removes quantity from the symbol's lots. When link is set the lot
// it names is drawn first; the rest comes from the front of the queue.
// It returns the fills, the quantity no lot could cover and whether the link
// named an open lot.
func (b *LotBook) Consume(symbol string, quantity decimal.Decimal, link *LotLink) ([]LotFill, decimal.Decimal, bool) {
	var fills []LotFill
	remaining := quantity
	linked := false

	queue := b.queues[symbol]

	if link != nil {
		for _, lot := range queue {
			if lot.RemainingQuantity.IsPositive() && link.matches(lot) {
				linked = true
				fill := take(lot, remaining)
				fill.Linked = true
				fills = append(fills, fill)
				remaining = remaining.Sub(fill.Quantity)
				break
			}
		}
	}

	for _, lot := range queue {
		if !remaining.IsPositive() {
			break
		}
		if !lot.RemainingQuantity.IsPositive() {
			continue
		}
		fill := take(lot, remaining)
		fills = append(fills, fill)
		remaining = remaining.Sub(fill.Quantity)
	}

	b.queues[symbol] = compact(queue)

	return fills, remaining, linked
}

func take(lot *Lot, want decimal.Decimal) LotFill {
	qty := decimal.Min(want, lot.RemainingQuantity)
	snapshot := *lot
	lot.RemainingQuantity = lot.RemainingQuantity.Sub(qty)
	return LotFill{Lot: snapshot, Quantity: qty}
}

func compact(queue []*Lot) []*Lot {
	out := queue[:0]
	for _, l := range queue {
		if l.RemainingQuantity.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}
