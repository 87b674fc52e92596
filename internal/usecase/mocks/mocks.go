package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// MockTransactionRepository is a mock implementation of TransactionRepository
// backed by a map keyed by identity.
type MockTransactionRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Transaction
	seq     int64

	FindByDatesFunc      func(ctx context.Context, tx usecase.Transaction, dates []time.Time) ([]*domain.Transaction, error)
	FindByIdentitiesFunc func(ctx context.Context, tx usecase.Transaction, identities []string) ([]*domain.Transaction, error)
	SaveFunc             func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	DeleteFunc           func(ctx context.Context, tx usecase.Transaction, identity string) error
	QueryFunc            func(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		records: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) FindByDates(ctx context.Context, tx usecase.Transaction, dates []time.Time) ([]*domain.Transaction, error) {
	if m.FindByDatesFunc != nil {
		return m.FindByDatesFunc(ctx, tx, dates)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		want[domain.Day(d)] = true
	}
	var out []*domain.Transaction
	for _, r := range m.records {
		if want[r.Date] {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) FindByIdentities(ctx context.Context, tx usecase.Transaction, identities []string) ([]*domain.Transaction, error) {
	if m.FindByIdentitiesFunc != nil {
		return m.FindByIdentitiesFunc(ctx, tx, identities)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for _, id := range identities {
		if r, ok := m.records[id]; ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := txn.Clone()
	if c.Seq == 0 {
		m.seq++
		c.Seq = m.seq
	}
	m.records[c.Identity()] = c
	return nil
}

func (m *MockTransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, identity string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, identity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[identity]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.records, identity)
	return nil
}

func (m *MockTransactionRepository) Query(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Transaction, 0, len(m.records))
	for _, r := range m.records {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return domain.LessTransaction(out[i], out[j]) })
	return out, nil
}

// Snapshot returns the stored records without their sequence numbers,
// keyed by identity.
func (m *MockTransactionRepository) Snapshot() map[string]*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*domain.Transaction, len(m.records))
	for id, r := range m.records {
		c := r.Clone()
		c.Seq = 0
		out[id] = c
	}
	return out
}

// MockDeclarationRepository is a mock implementation of DeclarationRepository.
type MockDeclarationRepository struct {
	mu           sync.RWMutex
	declarations map[string]*domain.Declaration

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Declaration, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Declaration, error)
	FindByPeriodFunc     func(ctx context.Context, tx usecase.Transaction, typ domain.DeclarationType, period domain.Period) (*domain.Declaration, error)
	UpdateFunc           func(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error
	ListFunc             func(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error)
}

func NewMockDeclarationRepository() *MockDeclarationRepository {
	return &MockDeclarationRepository{
		declarations: make(map[string]*domain.Declaration),
	}
}

func (m *MockDeclarationRepository) Create(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.declarations {
		if existing.Type == d.Type && existing.Period.SameBounds(d.Period) {
			return domain.ErrDeclarationExists
		}
	}
	m.declarations[d.ID] = d.Clone()
	return nil
}

func (m *MockDeclarationRepository) GetByID(ctx context.Context, id string) (*domain.Declaration, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.declarations[id]; ok {
		return d.Clone(), nil
	}
	return nil, domain.ErrDeclarationNotFound
}

func (m *MockDeclarationRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Declaration, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockDeclarationRepository) FindByPeriod(ctx context.Context, tx usecase.Transaction, typ domain.DeclarationType, period domain.Period) (*domain.Declaration, error) {
	if m.FindByPeriodFunc != nil {
		return m.FindByPeriodFunc(ctx, tx, typ, period)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.declarations {
		if d.Type == typ && d.Period.SameBounds(period) {
			return d.Clone(), nil
		}
	}
	return nil, domain.ErrDeclarationNotFound
}

func (m *MockDeclarationRepository) Update(ctx context.Context, tx usecase.Transaction, d *domain.Declaration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.declarations[d.ID]; !ok {
		return domain.ErrDeclarationNotFound
	}
	m.declarations[d.ID] = d.Clone()
	return nil
}

func (m *MockDeclarationRepository) List(ctx context.Context, filter domain.DeclarationFilter) ([]*domain.Declaration, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Declaration
	for _, d := range m.declarations {
		if filter.Matches(d) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MockRateRepository is a mock implementation of RateRepository.
type MockRateRepository struct {
	mu    sync.RWMutex
	rates map[string]domain.ExchangeRate
	Calls int

	RateOnOrBeforeFunc func(ctx context.Context, currency string, date time.Time) (*domain.ExchangeRate, error)
	SaveFunc           func(ctx context.Context, rates []domain.ExchangeRate) (int, error)
}

func NewMockRateRepository() *MockRateRepository {
	return &MockRateRepository{
		rates: make(map[string]domain.ExchangeRate),
	}
}

func (m *MockRateRepository) RateOnOrBefore(ctx context.Context, currency string, date time.Time) (*domain.ExchangeRate, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.RateOnOrBeforeFunc != nil {
		return m.RateOnOrBeforeFunc(ctx, currency, date)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.ExchangeRate
	for _, r := range m.rates {
		if r.Currency != currency || r.Date.After(date) {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			v := r
			best = &v
		}
	}
	if best == nil {
		return nil, domain.ErrRateNotFound
	}
	return best, nil
}

func (m *MockRateRepository) Save(ctx context.Context, rates []domain.ExchangeRate) (int, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, rates)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range rates {
		if _, ok := m.rates[r.Key()]; ok {
			continue
		}
		m.rates[r.Key()] = r
		n++
	}
	return n, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
	Begun     int
	Last      *MockTransaction
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	m.Begun++
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.Last = &MockTransaction{}
	return m.Last, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu sync.Mutex
	n  int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return fmt.Sprintf("decl-%03d", m.n)
}

// MockClock is a settable Clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
