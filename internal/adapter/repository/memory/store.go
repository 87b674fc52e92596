// Package memory is an in-process storage backend. A transaction works on a
// private copy of the committed state and publishes it on commit, so
// rolled back work is never visible.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// ErrTxClosed is returned when a finished transaction is committed again.
var ErrTxClosed = errors.New("transaction already closed")

type state struct {
	txns  map[string]*domain.Transaction
	seq   int64
	decls map[string]*domain.Declaration
	rates map[string]domain.ExchangeRate
}

func newState() *state {
	return &state{
		txns:  make(map[string]*domain.Transaction),
		decls: make(map[string]*domain.Declaration),
		rates: make(map[string]domain.ExchangeRate),
	}
}

// copy duplicates the maps. Stored values are never mutated in place, so
// sharing them between generations is safe.
func (s *state) copy() *state {
	c := &state{
		txns:  make(map[string]*domain.Transaction, len(s.txns)),
		seq:   s.seq,
		decls: make(map[string]*domain.Declaration, len(s.decls)),
		rates: s.rates,
	}
	for k, v := range s.txns {
		c.txns[k] = v
	}
	for k, v := range s.decls {
		c.decls[k] = v
	}
	return c
}

// Store holds the committed state. Writers are serialized: one transaction
// at a time, readers never block on an open transaction.
type Store struct {
	writer chan struct{}

	mu        sync.RWMutex
	committed *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		writer:    make(chan struct{}, 1),
		committed: newState(),
	}
}

func (s *Store) lockWriter(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlockWriter() {
	<-s.writer
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin waits for the writer slot and starts a transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := m.store.lockWriter(ctx); err != nil {
		return nil, err
	}
	return &Tx{store: m.store, state: m.store.snapshot().copy()}, nil
}

// Tx is an open memory transaction.
type Tx struct {
	store *Store
	state *state
	done  bool
}

// Commit publishes the transaction state.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.store.mu.Lock()
	t.store.committed = t.state
	t.store.mu.Unlock()
	t.finish()
	return nil
}

// Rollback discards the transaction state. Rolling back a finished
// transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	t.state = nil
	t.store.unlockWriter()
}

func stateOf(tx usecase.Transaction) (*state, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt.done {
		return nil, ErrTxClosed
	}
	return mt.state, nil
}
