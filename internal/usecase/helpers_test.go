package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase/mocks"
)

func day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func importedTrade(date, symbol string, side domain.Side, price, qty string) *domain.Transaction {
	return &domain.Transaction{
		Source:   domain.SourceImported,
		Type:     domain.TransactionTypeTrade,
		Date:     day(date),
		Symbol:   symbol,
		Currency: "USD",
		Side:     side,
		Price:    dec(price),
		Quantity: dec(qty),
	}
}

func authTrade(id, date, symbol string, side domain.Side, price, qty string) *domain.Transaction {
	t := importedTrade(date, symbol, side, price, qty)
	t.Source = domain.SourceAuthoritative
	t.ID = id
	return t
}

func cash(id string, typ domain.TransactionType, date, symbol, amount, currency string) *domain.Transaction {
	return &domain.Transaction{
		ID:       id,
		Source:   domain.SourceAuthoritative,
		Type:     typ,
		Date:     day(date),
		Symbol:   symbol,
		Currency: currency,
		Amount:   dec(amount),
	}
}

func importedCash(typ domain.TransactionType, date, symbol, amount string) *domain.Transaction {
	c := cash("", typ, date, symbol, amount, "USD")
	c.Source = domain.SourceImported
	return c
}

func withCurrency(t *domain.Transaction, currency string) *domain.Transaction {
	t.Currency = currency
	return t
}

// seed normalizes and stores records directly, bypassing reconciliation.
func seed(t *testing.T, repo *mocks.MockTransactionRepository, txns ...*domain.Transaction) {
	t.Helper()
	for _, txn := range txns {
		c := txn.Clone()
		c.Normalize()
		if err := c.Validate(); err != nil {
			t.Fatalf("invalid seed record: %v", err)
		}
		if err := repo.Save(context.Background(), nil, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func rates(t *testing.T, repo *mocks.MockRateRepository, currency string, byDate map[string]string) {
	t.Helper()
	batch := make([]domain.ExchangeRate, 0, len(byDate))
	for date, rate := range byDate {
		batch = append(batch, domain.ExchangeRate{Date: day(date), Currency: currency, Rate: dec(rate)})
	}
	if _, err := repo.Save(context.Background(), batch); err != nil {
		t.Fatalf("save rates: %v", err)
	}
}

func assertSameLedger(t *testing.T, got, want map[string]*domain.Transaction) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for id, w := range want {
		g, ok := got[id]
		if !ok {
			t.Fatalf("missing record %s", id)
		}
		if !g.SameContent(w) {
			t.Fatalf("record %s differs: got %+v, want %+v", id, g, w)
		}
	}
}
