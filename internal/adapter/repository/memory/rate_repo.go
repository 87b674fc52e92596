package memory

import (
	"context"
	"strings"
	"time"

	"github.com/iho/taxledger/internal/domain"
)

// RateRepository implements usecase.RateRepository.
type RateRepository struct {
	store *Store
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(store *Store) *RateRepository {
	return &RateRepository{store: store}
}

// RateOnOrBefore returns the latest rate for currency dated on or before date.
func (r *RateRepository) RateOnOrBefore(ctx context.Context, currency string, date time.Time) (*domain.ExchangeRate, error) {
	currency = strings.ToUpper(currency)
	day := domain.Day(date)

	var best *domain.ExchangeRate
	for _, rate := range r.store.snapshot().rates {
		if rate.Currency != currency || rate.Date.After(day) {
			continue
		}
		if best == nil || rate.Date.After(best.Date) {
			v := rate
			best = &v
		}
	}
	if best == nil {
		return nil, domain.ErrRateNotFound
	}
	return best, nil
}

// Save stores rates that are not yet known and returns how many were added.
// The rate table is replaced as a whole so readers holding the previous
// snapshot are unaffected.
func (r *RateRepository) Save(ctx context.Context, rates []domain.ExchangeRate) (int, error) {
	if err := r.store.lockWriter(ctx); err != nil {
		return 0, err
	}
	defer r.store.unlockWriter()

	current := r.store.snapshot()
	table := make(map[string]domain.ExchangeRate, len(current.rates)+len(rates))
	for k, v := range current.rates {
		table[k] = v
	}

	added := 0
	for _, rate := range rates {
		if _, ok := table[rate.Key()]; ok {
			continue
		}
		table[rate.Key()] = rate
		added++
	}
	if added == 0 {
		return 0, nil
	}

	next := current.copy()
	next.rates = table
	r.store.mu.Lock()
	r.store.committed = next
	r.store.mu.Unlock()
	return added, nil
}
