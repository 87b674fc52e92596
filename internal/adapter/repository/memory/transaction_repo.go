package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// FindByDates returns the records dated on any of dates.
func (r *TransactionRepository) FindByDates(ctx context.Context, tx usecase.Transaction, dates []time.Time) ([]*domain.Transaction, error) {
	st, err := stateOf(tx)
	if err != nil {
		return nil, err
	}

	want := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		want[domain.Day(d)] = true
	}

	var out []*domain.Transaction
	for _, txn := range st.txns {
		if want[txn.Date] {
			out = append(out, txn.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// FindByIdentities returns the stored records among identities.
func (r *TransactionRepository) FindByIdentities(ctx context.Context, tx usecase.Transaction, identities []string) ([]*domain.Transaction, error) {
	st, err := stateOf(tx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, 0, len(identities))
	for _, id := range identities {
		if txn, ok := st.txns[id]; ok {
			out = append(out, txn.Clone())
		}
	}
	return out, nil
}

// Save inserts or replaces a record by identity.
func (r *TransactionRepository) Save(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}

	c := txn.Clone()
	if c.Seq == 0 {
		st.seq++
		c.Seq = st.seq
	}
	st.txns[c.Identity()] = c
	return nil
}

// Delete removes a record.
func (r *TransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, identity string) error {
	st, err := stateOf(tx)
	if err != nil {
		return err
	}
	if _, ok := st.txns[identity]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(st.txns, identity)
	return nil
}

// Query returns committed records matching filter ordered by date, then identity.
func (r *TransactionRepository) Query(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	st := r.store.snapshot()

	out := make([]*domain.Transaction, 0, len(st.txns))
	for _, txn := range st.txns {
		if filter.Matches(txn) {
			out = append(out, txn.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return domain.LessTransaction(out[i], out[j]) })
	return out, nil
}
