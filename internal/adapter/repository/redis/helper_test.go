package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

// newTestRedis starts an in-memory server that lives for the test.
func newTestRedis(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedRates stores rates for one currency and returns how many were new.
func seedRates(t *testing.T, repo *RateRepository, currency string, byDate map[string]string) int {
	t.Helper()

	batch := make([]domain.ExchangeRate, 0, len(byDate))
	for date, rate := range byDate {
		batch = append(batch, domain.ExchangeRate{Date: day(date), Currency: currency, Rate: decimal.RequireFromString(rate)})
	}
	n, err := repo.Save(context.Background(), batch)
	if err != nil {
		t.Fatalf("seed %s rates: %v", currency, err)
	}
	return n
}
