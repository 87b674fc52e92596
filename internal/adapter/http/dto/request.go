package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

var validate = validator.New()

// Validate checks the struct tags of a request.
func Validate(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	return nil
}

// TransactionRequest is one ledger record in a request body.
type TransactionRequest struct {
	ID          string          `json:"id,omitempty"`
	Source      string          `json:"source,omitempty"      validate:"omitempty,oneof=authoritative imported"`
	Type        string          `json:"type"                  validate:"required,oneof=TRADE DIVIDEND WITHHOLDING_TAX INTEREST TAX"`
	Date        string          `json:"date"                  validate:"required,datetime=2006-01-02"`
	Symbol      string          `json:"symbol"                validate:"required,max=32"`
	Description string          `json:"description,omitempty" validate:"max=256"`
	Currency    string          `json:"currency"              validate:"required,len=3"`
	Quantity    decimal.Decimal `json:"quantity"`

	Price              decimal.Decimal  `json:"price"`
	Side               string           `json:"side,omitempty"                 validate:"omitempty,oneof=BUY SELL"`
	AssetClass         string           `json:"asset_class,omitempty"          validate:"omitempty,oneof=STK OPT CFD BOND CASH"`
	OriginalTradeDate  *string          `json:"original_trade_date,omitempty"  validate:"omitempty,datetime=2006-01-02"`
	OriginalTradePrice *decimal.Decimal `json:"original_trade_price,omitempty"`

	Amount decimal.Decimal `json:"amount"`
}

// ToDomain converts to a domain record. An empty Source takes fallback.
func (r *TransactionRequest) ToDomain(fallback domain.Source) (*domain.Transaction, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return nil, err
	}

	source := domain.Source(r.Source)
	if source == "" {
		source = fallback
	}

	txn := &domain.Transaction{
		ID:                 r.ID,
		Source:             source,
		Type:               domain.TransactionType(r.Type),
		Date:               date,
		Symbol:             r.Symbol,
		Description:        r.Description,
		Currency:           strings.ToUpper(r.Currency),
		Quantity:           r.Quantity,
		Price:              r.Price,
		Side:               domain.Side(r.Side),
		AssetClass:         domain.AssetClass(r.AssetClass),
		OriginalTradePrice: r.OriginalTradePrice,
		Amount:             r.Amount,
	}
	if r.OriginalTradeDate != nil {
		d, err := domain.ParseDate(*r.OriginalTradeDate)
		if err != nil {
			return nil, err
		}
		txn.OriginalTradeDate = &d
	}
	return txn, nil
}

// UpsertRequest merges a batch into the ledger.
type UpsertRequest struct {
	Source       string               `json:"source"       validate:"required,oneof=authoritative imported"`
	Transactions []TransactionRequest `json:"transactions" validate:"required,min=1,dive"`
}

// ToDomain converts the batch.
func (r *UpsertRequest) ToDomain() ([]*domain.Transaction, error) {
	return transactionsToDomain(r.Transactions, domain.Source(r.Source))
}

// ReconcileRequest merges an imported and an authoritative batch.
type ReconcileRequest struct {
	Imported      []TransactionRequest `json:"imported"      validate:"dive"`
	Authoritative []TransactionRequest `json:"authoritative" validate:"dive"`
}

// ToDomain converts both batches.
func (r *ReconcileRequest) ToDomain() (imported, authoritative []*domain.Transaction, err error) {
	if imported, err = transactionsToDomain(r.Imported, domain.SourceImported); err != nil {
		return nil, nil, err
	}
	if authoritative, err = transactionsToDomain(r.Authoritative, domain.SourceAuthoritative); err != nil {
		return nil, nil, err
	}
	return imported, authoritative, nil
}

func transactionsToDomain(reqs []TransactionRequest, source domain.Source) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(reqs))
	for i := range reqs {
		txn, err := reqs[i].ToDomain(source)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		out = append(out, txn)
	}
	return out, nil
}

// RateItem is one exchange rate.
type RateItem struct {
	Date     string          `json:"date"     validate:"required,datetime=2006-01-02"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Rate     decimal.Decimal `json:"rate"`
}

// SaveRatesRequest stores a rate table.
type SaveRatesRequest struct {
	Rates []RateItem `json:"rates" validate:"required,min=1,dive"`
}

// ToDomain converts the rate table.
func (r *SaveRatesRequest) ToDomain() ([]domain.ExchangeRate, error) {
	out := make([]domain.ExchangeRate, 0, len(r.Rates))
	for _, item := range r.Rates {
		date, err := domain.ParseDate(item.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ExchangeRate{Date: date, Currency: item.Currency, Rate: item.Rate})
	}
	return out, nil
}

// BuildDeclarationsRequest builds declarations for a date range. Leaving
// both bounds empty selects the last complete half-year.
type BuildDeclarationsRequest struct {
	From string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to,omitempty"   validate:"omitempty,datetime=2006-01-02"`
}

// ToDomain converts to a date range. Empty bounds stay open.
func (r *BuildDeclarationsRequest) ToDomain() (domain.DateRange, error) {
	var from, to time.Time
	var err error
	if r.From != "" {
		if from, err = domain.ParseDate(r.From); err != nil {
			return domain.DateRange{}, err
		}
	}
	if r.To != "" {
		if to, err = domain.ParseDate(r.To); err != nil {
			return domain.DateRange{}, err
		}
	}
	return domain.NewDateRange(from, to)
}

// TransitionRequest moves a declaration to Status.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssessedTaxRequest records the tax office assessment.
type AssessedTaxRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
