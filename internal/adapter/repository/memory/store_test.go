package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/taxledger/internal/adapter/repository/memory"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

func day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func trade(id, date, symbol string, side domain.Side, price, qty string) *domain.Transaction {
	t := &domain.Transaction{
		ID:       id,
		Source:   domain.SourceAuthoritative,
		Type:     domain.TransactionTypeTrade,
		Date:     day(date),
		Symbol:   symbol,
		Currency: "USD",
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
	if id == "" {
		t.Source = domain.SourceImported
	}
	t.Normalize()
	return t
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	repo := memory.NewTransactionRepository(store)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, tx, trade("T1", "2024-01-05", "AAPL", domain.SideBuy, "150", "10")))
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.Query(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTx_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	repo := memory.NewTransactionRepository(store)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, tx, trade("T1", "2024-01-05", "AAPL", domain.SideBuy, "150", "10")))

	before, err := repo.Query(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, before, "uncommitted writes must not be visible")

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	after, err := repo.Query(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "T1", after[0].Identity())
	assert.Equal(t, int64(1), after[0].Seq)

	assert.ErrorIs(t, tx.Commit(ctx), memory.ErrTxClosed)
}

func TestTx_BeginWaitsForWriter(t *testing.T) {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)

	first, err := txm.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = txm.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Rollback(context.Background()))
	second, err := txm.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, second.Rollback(context.Background()))
}

func TestTransactionRepository_FindAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	repo := memory.NewTransactionRepository(store)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, repo.Save(ctx, tx, trade("", "2024-02-01", "MSFT", domain.SideBuy, "200", "20")))
	require.NoError(t, repo.Save(ctx, tx, trade("T9", "2024-02-02", "MSFT", domain.SideSell, "210", "5")))

	byDate, err := repo.FindByDates(ctx, tx, []time.Time{day("2024-02-01").Add(9 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "imp-2024-02-01-MSFT-BUY-200-20-USD", byDate[0].Identity())

	byID, err := repo.FindByIdentities(ctx, tx, []string{"T9", "missing"})
	require.NoError(t, err)
	require.Len(t, byID, 1)

	require.NoError(t, repo.Delete(ctx, tx, "T9"))
	assert.ErrorIs(t, repo.Delete(ctx, tx, "T9"), domain.ErrTransactionNotFound)
}

// failingRepository fails to save one identity after the others succeed.
type failingRepository struct {
	*memory.TransactionRepository
	failOn string
}

func (r *failingRepository) Save(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if txn.Identity() == r.failOn {
		return errors.New("disk full")
	}
	return r.TransactionRepository.Save(ctx, tx, txn)
}

func TestLedger_UpsertIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	repo := memory.NewTransactionRepository(store)

	ledger := usecase.NewLedgerUseCase(txm, repo, usecase.WithLedgerLogger(zerolog.Nop()))
	_, err := ledger.Upsert(ctx, []*domain.Transaction{
		trade("", "2024-02-01", "MSFT", domain.SideBuy, "200", "20"),
	})
	require.NoError(t, err)

	failing := usecase.NewLedgerUseCase(txm, &failingRepository{TransactionRepository: repo, failOn: "T3"},
		usecase.WithLedgerLogger(zerolog.Nop()))
	_, err = failing.Upsert(ctx, []*domain.Transaction{
		trade("T2", "2024-02-01", "MSFT", domain.SideBuy, "199", "10"),
		trade("T3", "2024-02-01", "MSFT", domain.SideBuy, "201", "10"),
	})
	require.Error(t, err)

	got, err := repo.Query(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1, "failed batch must leave the ledger untouched")
	assert.Equal(t, "imp-2024-02-01-MSFT-BUY-200-20-USD", got[0].Identity())

	report, err := ledger.Upsert(ctx, []*domain.Transaction{
		trade("T2", "2024-02-01", "MSFT", domain.SideBuy, "199", "10"),
		trade("T3", "2024-02-01", "MSFT", domain.SideBuy, "201", "10"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.New)
	assert.Equal(t, 1, report.Removed)
}
