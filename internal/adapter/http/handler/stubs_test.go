package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

type ledgerServiceStub struct {
	upsertFn    func(ctx context.Context, batch []*domain.Transaction) (*domain.MergeReport, error)
	reconcileFn func(ctx context.Context, imported, authoritative []*domain.Transaction) (*domain.MergeReport, error)
	queryFn     func(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	checkFn     func(ctx context.Context) (bool, error)
}

func (s *ledgerServiceStub) Upsert(ctx context.Context, batch []*domain.Transaction) (*domain.MergeReport, error) {
	return s.upsertFn(ctx, batch)
}

func (s *ledgerServiceStub) Reconcile(ctx context.Context, imported, authoritative []*domain.Transaction) (*domain.MergeReport, error) {
	return s.reconcileFn(ctx, imported, authoritative)
}

func (s *ledgerServiceStub) QueryFilter(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return s.queryFn(ctx, filter)
}

func (s *ledgerServiceStub) CheckConsistency(ctx context.Context) (bool, error) {
	return s.checkFn(ctx)
}

type rateServiceStub struct {
	saveFn   func(ctx context.Context, rates []domain.ExchangeRate) (int, error)
	lookupFn func(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}

func (s *rateServiceStub) SaveRates(ctx context.Context, rates []domain.ExchangeRate) (int, error) {
	return s.saveFn(ctx, rates)
}

func (s *rateServiceStub) Lookup(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	return s.lookupFn(ctx, currency, date)
}

type gainsServiceStub struct {
	computeFn  func(ctx context.Context, rng domain.DateRange, symbol string) (*domain.GainsResult, error)
	activityFn func(ctx context.Context, rng domain.DateRange, symbol string) ([]domain.MonthlyActivity, error)
}

func (s *gainsServiceStub) ComputeGains(ctx context.Context, rng domain.DateRange, symbol string) (*domain.GainsResult, error) {
	return s.computeFn(ctx, rng, symbol)
}

func (s *gainsServiceStub) Activity(ctx context.Context, rng domain.DateRange, symbol string) ([]domain.MonthlyActivity, error) {
	return s.activityFn(ctx, rng, symbol)
}

// declarationServiceStub panics on any method whose function is unset.
type declarationServiceStub struct {
	previewFn        func(ctx context.Context, rng domain.DateRange) (*usecase.BuildResult, error)
	buildFn          func(ctx context.Context, rng domain.DateRange) (*usecase.CreateResult, error)
	getFn            func(ctx context.Context, id string) (*domain.Declaration, error)
	listFn           func(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error)
	transitionFn     func(ctx context.Context, id string, target domain.DeclarationStatus) (*domain.Declaration, error)
	attachFn         func(ctx context.Context, id, filename string, content []byte) (*usecase.AttachResult, error)
	detachFn         func(ctx context.Context, id, filename string) (*domain.Declaration, error)
	setAssessedTaxFn func(ctx context.Context, id string, amount decimal.Decimal) (*domain.Declaration, error)
	documentFn       func(ctx context.Context, id string) (*domain.Document, error)
}

func (s *declarationServiceStub) Preview(ctx context.Context, rng domain.DateRange) (*usecase.BuildResult, error) {
	return s.previewFn(ctx, rng)
}

func (s *declarationServiceStub) BuildAndCreate(ctx context.Context, rng domain.DateRange) (*usecase.CreateResult, error) {
	return s.buildFn(ctx, rng)
}

func (s *declarationServiceStub) Get(ctx context.Context, id string) (*domain.Declaration, error) {
	return s.getFn(ctx, id)
}

func (s *declarationServiceStub) List(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error) {
	return s.listFn(ctx, filter)
}

func (s *declarationServiceStub) Transition(ctx context.Context, id string, target domain.DeclarationStatus) (*domain.Declaration, error) {
	return s.transitionFn(ctx, id, target)
}

func (s *declarationServiceStub) Attach(ctx context.Context, id, filename string, content []byte) (*usecase.AttachResult, error) {
	return s.attachFn(ctx, id, filename, content)
}

func (s *declarationServiceStub) Detach(ctx context.Context, id, filename string) (*domain.Declaration, error) {
	return s.detachFn(ctx, id, filename)
}

func (s *declarationServiceStub) SetAssessedTax(ctx context.Context, id string, amount decimal.Decimal) (*domain.Declaration, error) {
	return s.setAssessedTaxFn(ctx, id, amount)
}

func (s *declarationServiceStub) Document(ctx context.Context, id string) (*domain.Document, error) {
	return s.documentFn(ctx, id)
}
