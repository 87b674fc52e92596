package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

// TransactionRepository defines data access for ledger records.
type TransactionRepository interface {
	// FindByDates returns every record dated on one of dates, read inside tx.
	FindByDates(ctx context.Context, tx Transaction, dates []time.Time) ([]*domain.Transaction, error)
	FindByIdentities(ctx context.Context, tx Transaction, identities []string) ([]*domain.Transaction, error)
	// Save inserts or replaces the record with the same identity. A zero Seq
	// is assigned by the repository.
	Save(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	Delete(ctx context.Context, tx Transaction, identity string) error
	Query(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// RateSource answers exchange rate lookups.
type RateSource interface {
	// RateOnOrBefore returns the latest rate for currency dated on or before
	// date, or domain.ErrRateNotFound.
	RateOnOrBefore(ctx context.Context, currency string, date time.Time) (*domain.ExchangeRate, error)
}

// RateConverter resolves reporting-currency rates.
type RateConverter interface {
	Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
	ReportingCurrency() string
}

// GainsComputer realizes capital gains for a date range.
type GainsComputer interface {
	ComputeGains(ctx context.Context, rng domain.DateRange, symbol string) (*domain.GainsResult, error)
}

// RateRepository stores exchange rates.
type RateRepository interface {
	RateSource
	// Save stores rates. Existing (currency, date) pairs are left unchanged.
	Save(ctx context.Context, rates []domain.ExchangeRate) (int, error)
}

// RateCache is a shared cache of resolved rate lookups.
type RateCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// DeclarationRepository defines data access for declarations.
type DeclarationRepository interface {
	Create(ctx context.Context, tx Transaction, d *domain.Declaration) error
	GetByID(ctx context.Context, id string) (*domain.Declaration, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Declaration, error)
	FindByPeriod(ctx context.Context, tx Transaction, typ domain.DeclarationType, period domain.Period) (*domain.Declaration, error)
	Update(ctx context.Context, tx Transaction, d *domain.Declaration) error
	List(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// RecordedMetrics is the subset of metrics the use cases report to.
type RecordedMetrics interface {
	ObserveMerge(report domain.MergeReport)
	ObserveGains(events, unmatched int)
	ObserveMissingRate(currency string)
	ObserveTransition(from, to domain.DeclarationStatus)
	ObserveDeclarationsBuilt(typ domain.DeclarationType, n int)
}
