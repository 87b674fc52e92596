package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func newTestLot(t *testing.T, id, date, price, qty string) Lot {
	t.Helper()
	return Lot{
		ID:                id,
		Symbol:            "AAPL",
		OpenDate:          mustDate(t, date),
		OpenPrice:         decimal.RequireFromString(price),
		Currency:          "USD",
		RemainingQuantity: decimal.RequireFromString(qty),
	}
}

func TestLotBook_ConsumeSpansLotsOldestFirst(t *testing.T) {
	book := NewLotBook()
	book.Open(newTestLot(t, "B1", "2023-01-01", "100", "10"))
	book.Open(newTestLot(t, "B2", "2023-02-01", "120", "10"))

	fills, unmatched, _ := book.Consume("AAPL", decimal.NewFromInt(15), nil)

	if !unmatched.IsZero() {
		t.Fatalf("expected fully matched sell, got unmatched %s", unmatched)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}
	if fills[0].Lot.ID != "B1" || !fills[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected first fill: %+v", fills[0])
	}
	if fills[1].Lot.ID != "B2" || !fills[1].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected second fill: %+v", fills[1])
	}

	cost := decimal.Zero
	for _, f := range fills {
		cost = cost.Add(f.Quantity.Mul(f.Lot.OpenPrice))
	}
	if !cost.Equal(decimal.NewFromInt(10*100 + 5*120)) {
		t.Fatalf("expected cost basis 1600, got %s", cost)
	}

	lots := book.Lots("AAPL")
	if len(lots) != 1 || lots[0].ID != "B2" || !lots[0].RemainingQuantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected B2 with 5 remaining, got %+v", lots)
	}
}

func TestLotBook_ConsumeReportsUncoveredQuantity(t *testing.T) {
	book := NewLotBook()
	book.Open(newTestLot(t, "B1", "2023-01-01", "100", "4"))

	fills, unmatched, _ := book.Consume("AAPL", decimal.NewFromInt(6), nil)
	if len(fills) != 1 {
		t.Fatalf("expected one fill, got %d", len(fills))
	}
	if !unmatched.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2 unmatched, got %s", unmatched)
	}
	if !book.Remaining("AAPL").IsZero() {
		t.Fatalf("expected no open quantity left")
	}

	fills, unmatched, _ = book.Consume("MSFT", decimal.NewFromInt(1), nil)
	if len(fills) != 0 || !unmatched.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected sell without lots to stay unmatched, got fills=%v unmatched=%s", fills, unmatched)
	}
}

func TestLotBook_LinkOverridesFIFO(t *testing.T) {
	book := NewLotBook()
	book.Open(newTestLot(t, "B1", "2023-01-01", "100", "10"))
	book.Open(newTestLot(t, "B2", "2023-02-01", "120", "10"))

	link := &LotLink{OpenDate: mustDate(t, "2023-02-01"), OpenPrice: decimal.RequireFromString("120.00")}
	fills, unmatched, linked := book.Consume("AAPL", decimal.NewFromInt(12), link)

	if !linked {
		t.Fatalf("expected link to resolve")
	}
	if !unmatched.IsZero() {
		t.Fatalf("expected full match, got %s unmatched", unmatched)
	}
	if fills[0].Lot.ID != "B2" || !fills[0].Linked || !fills[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected linked lot consumed first, got %+v", fills[0])
	}
	if fills[1].Lot.ID != "B1" || !fills[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected FIFO remainder from B1, got %+v", fills[1])
	}
}

func TestLotBook_UnknownLinkFallsBackToFIFO(t *testing.T) {
	book := NewLotBook()
	book.Open(newTestLot(t, "B1", "2023-01-01", "100", "10"))

	link := &LotLink{OpenDate: mustDate(t, "2022-01-01"), OpenPrice: decimal.NewFromInt(90)}
	fills, _, linked := book.Consume("AAPL", decimal.NewFromInt(3), link)

	if linked {
		t.Fatalf("expected link not to resolve")
	}
	if len(fills) != 1 || fills[0].Lot.ID != "B1" {
		t.Fatalf("expected FIFO fill from B1, got %+v", fills)
	}
}
