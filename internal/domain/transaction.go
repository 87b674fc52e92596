package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies where a transaction record came from.
type Source string

const (
	// SourceAuthoritative marks records from the officially identified feed.
	SourceAuthoritative Source = "authoritative"
	// SourceImported marks records from a tabular export without official IDs.
	SourceImported Source = "imported"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	return s == SourceAuthoritative || s == SourceImported
}

// TransactionType discriminates trades from the cash transaction kinds.
type TransactionType string

const (
	TransactionTypeTrade          TransactionType = "TRADE"
	TransactionTypeDividend       TransactionType = "DIVIDEND"
	TransactionTypeWithholdingTax TransactionType = "WITHHOLDING_TAX"
	TransactionTypeInterest       TransactionType = "INTEREST"
	TransactionTypeTax            TransactionType = "TAX"
)

var validTransactionTypes = map[TransactionType]bool{
	TransactionTypeTrade:          true,
	TransactionTypeDividend:       true,
	TransactionTypeWithholdingTax: true,
	TransactionTypeInterest:       true,
	TransactionTypeTax:            true,
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	return validTransactionTypes[t]
}

// IsIncome reports whether t is taxed as investment income.
func (t TransactionType) IsIncome() bool {
	return t == TransactionTypeDividend || t == TransactionTypeInterest
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// AssetClass is the instrument class reported by the broker.
type AssetClass string

const (
	AssetClassStock  AssetClass = "STK"
	AssetClassOption AssetClass = "OPT"
	AssetClassCFD    AssetClass = "CFD"
	AssetClassBond   AssetClass = "BOND"
	AssetClassCash   AssetClass = "CASH"
)

const syntheticPrefix = "imp-"

// Transaction is a single ledger record. Trades use Price, Side and the
// original-trade linkage; cash transactions use Amount.
type Transaction struct {
	ID          string
	Source      Source
	Type        TransactionType
	Date        time.Time
	Symbol      string
	Description string
	Currency    string
	Quantity    decimal.Decimal

	// Trade fields.
	Price              decimal.Decimal
	Side               Side
	AssetClass         AssetClass
	OriginalTradeDate  *time.Time
	OriginalTradePrice *decimal.Decimal

	// Cash fields.
	Amount decimal.Decimal

	// Seq is the ledger insertion order. It is assigned by the repository
	// and only used to rank imported records during reconciliation.
	Seq int64
}

// IsTrade reports whether the record is a trade.
func (t *Transaction) IsTrade() bool {
	return t.Type == TransactionTypeTrade
}

// IsSell reports whether the record is a sell trade.
func (t *Transaction) IsSell() bool {
	return t.IsTrade() && t.Side == SideSell
}

// Identity returns the official ID, or the synthetic key when none is set.
func (t *Transaction) Identity() string {
	if t.ID != "" {
		return t.ID
	}
	return t.SyntheticKey()
}

// HasSyntheticIdentity reports whether the identity is derived from content
// rather than issued by the broker.
func (t *Transaction) HasSyntheticIdentity() bool {
	return t.ID == "" || strings.HasPrefix(t.ID, syntheticPrefix)
}

// SyntheticKey derives an identity from the economic content of the record.
// Equal keys denote the same economic event regardless of source.
func (t *Transaction) SyntheticKey() string {
	date := t.Date.Format(DateLayout)
	symbol := strings.ToUpper(t.Symbol)
	currency := strings.ToUpper(t.Currency)
	if t.IsTrade() {
		return fmt.Sprintf("%s%s-%s-%s-%s-%s-%s",
			syntheticPrefix, date, symbol, t.Side, t.Price.String(), t.Quantity.String(), currency)
	}
	return fmt.Sprintf("%s%s-%s-%s-%s-%s",
		syntheticPrefix, date, symbol, t.Type, t.Amount.String(), currency)
}

// SemanticKey pairs imported and authoritative records describing the same
// event. Currency is not part of it and prices compare at 4 decimal places.
func (t *Transaction) SemanticKey() string {
	date := t.Date.Format(DateLayout)
	symbol := strings.ToUpper(t.Symbol)
	if t.IsTrade() {
		return fmt.Sprintf("%s|%s|%s|%s|%s",
			date, symbol, t.Side, t.Price.Round(4).String(), t.Quantity.String())
	}
	return fmt.Sprintf("%s|%s|%s|%s", date, symbol, t.Type, t.Amount.Round(4).String())
}

// GroupKey buckets records that reconciliation compares with each other.
func (t *Transaction) GroupKey() string {
	category := "cash"
	if t.IsTrade() {
		category = "trade"
	}
	return t.Date.Format(DateLayout) + "|" + strings.ToUpper(t.Symbol) + "|" + category
}

// SameContent reports whether two records carry identical data, ignoring Seq.
func (t *Transaction) SameContent(o *Transaction) bool {
	return t.Identity() == o.Identity() &&
		t.Source == o.Source &&
		t.Type == o.Type &&
		t.Date.Equal(o.Date) &&
		strings.EqualFold(t.Symbol, o.Symbol) &&
		t.Description == o.Description &&
		strings.EqualFold(t.Currency, o.Currency) &&
		t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price) &&
		t.Side == o.Side &&
		t.AssetClass == o.AssetClass &&
		t.Amount.Equal(o.Amount) &&
		sameDatePtr(t.OriginalTradeDate, o.OriginalTradeDate) &&
		sameDecimalPtr(t.OriginalTradePrice, o.OriginalTradePrice)
}

// Normalize canonicalizes casing, dates and identity in place.
func (t *Transaction) Normalize() {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	t.Date = Day(t.Date)
	if t.OriginalTradeDate != nil {
		d := Day(*t.OriginalTradeDate)
		t.OriginalTradeDate = &d
	}
	if t.IsTrade() {
		t.Quantity = t.Quantity.Abs()
		if t.AssetClass == "" {
			t.AssetClass = AssetClassStock
		}
	}
	if t.Source == SourceImported {
		t.ID = t.SyntheticKey()
	}
}

// Validate checks the fields required for the record's type.
func (t *Transaction) Validate() error {
	if !t.Source.IsValid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTransaction, t.Source)
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	if t.Source == SourceAuthoritative && t.ID == "" {
		return fmt.Errorf("%w: authoritative record without official id", ErrInvalidTransaction)
	}

	if !t.IsTrade() {
		if t.Amount.IsZero() {
			return fmt.Errorf("%w: cash amount is zero", ErrInvalidTransaction)
		}
		return nil
	}

	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: trade without symbol", ErrInvalidTransaction)
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidTransaction, t.Side)
	}
	if t.Quantity.IsZero() {
		return fmt.Errorf("%w: trade quantity is zero", ErrInvalidTransaction)
	}
	if t.Price.IsNegative() {
		return fmt.Errorf("%w: negative trade price", ErrInvalidTransaction)
	}
	return nil
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.OriginalTradeDate != nil {
		d := *t.OriginalTradeDate
		c.OriginalTradeDate = &d
	}
	if t.OriginalTradePrice != nil {
		p := *t.OriginalTradePrice
		c.OriginalTradePrice = &p
	}
	return &c
}

// TransactionFilter narrows a ledger query. Zero values mean unbounded.
type TransactionFilter struct {
	Range  DateRange
	Symbol string
	Types  []TransactionType
}

// Matches reports whether t passes the filter.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if !f.Range.Contains(t.Date) {
		return false
	}
	if f.Symbol != "" && !strings.EqualFold(f.Symbol, t.Symbol) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, typ := range f.Types {
		if typ == t.Type {
			return true
		}
	}
	return false
}

// LessTransaction orders records by date, then identity.
func LessTransaction(a, b *Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.Identity() < b.Identity()
}

func sameDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameDecimalPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
