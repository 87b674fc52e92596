package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/postgres/generated"
	"github.com/iho/taxledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepository(pool)
}

func newTransactionRepository(pool pgxPool) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(pool)}
}

// FindByDates locks and returns the records dated on any of dates.
func (r *TransactionRepository) FindByDates(ctx context.Context, tx usecase.Transaction, dates []time.Time) ([]*domain.Transaction, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	pgDates := make([]pgtype.Date, 0, len(dates))
	for _, d := range dates {
		pgDates = append(pgDates, dateToPg(domain.Day(d)))
	}

	rows, err := queries.FindTransactionsByDates(ctx, pgDates)
	if err != nil {
		return nil, err
	}
	return rowsToTransactions(rows), nil
}

// FindByIdentities locks and returns the stored records among identities.
func (r *TransactionRepository) FindByIdentities(ctx context.Context, tx usecase.Transaction, identities []string) ([]*domain.Transaction, error) {
	if len(identities) == 0 {
		return nil, nil
	}
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.FindTransactionsByIDs(ctx, identities)
	if err != nil {
		return nil, err
	}
	return rowsToTransactions(rows), nil
}

// Save inserts or replaces a record. A zero Seq takes the next sequence value.
func (r *TransactionRepository) Save(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	return queries.UpsertTransaction(ctx, generated.UpsertTransactionParams{
		ID:                 txn.Identity(),
		Source:             string(txn.Source),
		Type:               string(txn.Type),
		Date:               dateToPg(txn.Date),
		Symbol:             txn.Symbol,
		Description:        txn.Description,
		Currency:           txn.Currency,
		Quantity:           decimalToNumeric(txn.Quantity),
		Price:              decimalToNumeric(txn.Price),
		Side:               string(txn.Side),
		AssetClass:         string(txn.AssetClass),
		OriginalTradeDate:  optionalDateToPg(txn.OriginalTradeDate),
		OriginalTradePrice: optionalDecimalToNumeric(txn.OriginalTradePrice),
		Amount:             decimalToNumeric(txn.Amount),
		Seq:                txn.Seq,
	})
}

// Delete removes a record.
func (r *TransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, identity string) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	n, err := queries.DeleteTransaction(ctx, identity)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// Query returns records matching filter ordered by date, then identity.
func (r *TransactionRepository) Query(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	types := make([]string, 0, len(filter.Types))
	for _, t := range filter.Types {
		types = append(types, string(t))
	}

	rows, err := r.queries.QueryTransactions(ctx, generated.QueryTransactionsParams{
		FromDate: dateToPg(filter.Range.From),
		ToDate:   dateToPg(filter.Range.To),
		Symbol:   strings.ToUpper(filter.Symbol),
		Types:    types,
	})
	if err != nil {
		return nil, err
	}
	return rowsToTransactions(rows), nil
}

func rowsToTransactions(rows []generated.Transaction) []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToTransaction(row))
	}
	return out
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:                 row.ID,
		Source:             domain.Source(row.Source),
		Type:               domain.TransactionType(row.Type),
		Date:               pgToDate(row.Date),
		Symbol:             row.Symbol,
		Description:        row.Description,
		Currency:           strings.TrimSpace(row.Currency),
		Quantity:           numericToDecimal(row.Quantity),
		Price:              numericToDecimal(row.Price),
		Side:               domain.Side(row.Side),
		AssetClass:         domain.AssetClass(row.AssetClass),
		OriginalTradeDate:  pgToOptionalDate(row.OriginalTradeDate),
		OriginalTradePrice: numericToOptionalDecimal(row.OriginalTradePrice),
		Amount:             numericToDecimal(row.Amount),
		Seq:                row.Seq,
	}
}
