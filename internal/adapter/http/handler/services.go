package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// LedgerService is the ledger surface the handlers need.
type LedgerService interface {
	Upsert(ctx context.Context, batch []*domain.Transaction) (*domain.MergeReport, error)
	Reconcile(ctx context.Context, imported, authoritative []*domain.Transaction) (*domain.MergeReport, error)
	QueryFilter(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	CheckConsistency(ctx context.Context) (bool, error)
}

// RateService stores and resolves exchange rates.
type RateService interface {
	SaveRates(ctx context.Context, rates []domain.ExchangeRate) (int, error)
	Lookup(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}

// GainsService computes realized gains.
type GainsService interface {
	ComputeGains(ctx context.Context, rng domain.DateRange, symbol string) (*domain.GainsResult, error)
	Activity(ctx context.Context, rng domain.DateRange, symbol string) ([]domain.MonthlyActivity, error)
}

// DeclarationService manages declarations.
type DeclarationService interface {
	Preview(ctx context.Context, rng domain.DateRange) (*usecase.BuildResult, error)
	BuildAndCreate(ctx context.Context, rng domain.DateRange) (*usecase.CreateResult, error)
	Get(ctx context.Context, id string) (*domain.Declaration, error)
	List(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error)
	Transition(ctx context.Context, id string, target domain.DeclarationStatus) (*domain.Declaration, error)
	Attach(ctx context.Context, id, filename string, content []byte) (*usecase.AttachResult, error)
	Detach(ctx context.Context, id, filename string) (*domain.Declaration, error)
	SetAssessedTax(ctx context.Context, id string, amount decimal.Decimal) (*domain.Declaration, error)
	Document(ctx context.Context, id string) (*domain.Document, error)
}

var (
	_ LedgerService      = (*usecase.LedgerUseCase)(nil)
	_ RateService        = (*usecase.RateUseCase)(nil)
	_ GainsService       = (*usecase.GainsUseCase)(nil)
	_ DeclarationService = (*usecase.DeclarationUseCase)(nil)
)
