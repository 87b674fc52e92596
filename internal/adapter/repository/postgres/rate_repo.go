package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/postgres/generated"
)

// RateRepository implements usecase.RateRepository.
type RateRepository struct {
	pool    pgxPool
	queries *generated.Queries
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return newRateRepository(pool)
}

func newRateRepository(pool pgxPool) *RateRepository {
	return &RateRepository{pool: pool, queries: generated.New(pool)}
}

// RateOnOrBefore returns the latest rate for currency dated on or before date.
func (r *RateRepository) RateOnOrBefore(ctx context.Context, currency string, date time.Time) (*domain.ExchangeRate, error) {
	row, err := r.queries.GetRateOnOrBefore(ctx, generated.GetRateOnOrBeforeParams{
		Currency: strings.ToUpper(currency),
		Date:     dateToPg(domain.Day(date)),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRateNotFound
		}
		return nil, err
	}

	return &domain.ExchangeRate{
		Date:     pgToDate(row.Date),
		Currency: strings.TrimSpace(row.Currency),
		Rate:     numericToDecimal(row.Rate),
	}, nil
}

// Save inserts rates in one transaction. Existing (currency, date) pairs are
// left untouched and not counted.
func (r *RateRepository) Save(ctx context.Context, rates []domain.ExchangeRate) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	queries := generated.New(tx)
	var added int64
	for _, rate := range rates {
		n, err := queries.InsertRate(ctx, generated.InsertRateParams{
			Currency: rate.Currency,
			Date:     dateToPg(rate.Date),
			Rate:     decimalToNumeric(rate.Rate),
		})
		if err != nil {
			return 0, err
		}
		added += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(added), nil
}
