package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

// saveRates inserts (currency, date, rate, score) quadruples. Dates already
// present keep their rate. Returns the number of new rates.
var saveRates = redis.NewScript(`
local added = 0
for i = 1, #ARGV, 4 do
  local zkey = KEYS[1] .. ARGV[i]
  if redis.call('HSETNX', zkey .. ':values', ARGV[i+1], ARGV[i+2]) == 1 then
    redis.call('ZADD', zkey, ARGV[i+3], ARGV[i+1])
    added = added + 1
  end
end
return added
`)

// RateRepository implements usecase.RateRepository on Redis. Each currency
// has a sorted set of dates scored by day number and a hash of date to rate.
type RateRepository struct {
	client *redis.Client
	prefix string
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(client *redis.Client) *RateRepository {
	return &RateRepository{
		client: client,
		prefix: "rates:",
	}
}

func dayScore(t time.Time) int64 {
	return domain.Day(t).Unix() / 86400
}

// RateOnOrBefore returns the latest rate for currency dated on or before date.
func (r *RateRepository) RateOnOrBefore(ctx context.Context, currency string, date time.Time) (*domain.ExchangeRate, error) {
	currency = strings.ToUpper(currency)
	key := r.prefix + currency

	dates, err := r.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Max:   strconv.FormatInt(dayScore(date), 10),
		Min:   "-inf",
		Count: 1,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, domain.ErrRateNotFound
	}

	raw, err := r.client.HGet(ctx, key+":values", dates[0]).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRateNotFound
		}
		return nil, err
	}

	found, err := time.Parse(domain.DateLayout, dates[0])
	if err != nil {
		return nil, fmt.Errorf("stored rate date %q: %w", dates[0], err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("stored rate %s %s: %w", currency, dates[0], err)
	}

	return &domain.ExchangeRate{Date: found, Currency: currency, Rate: rate}, nil
}

// Save stores rates atomically. Existing (currency, date) pairs are left
// untouched and not counted.
func (r *RateRepository) Save(ctx context.Context, rates []domain.ExchangeRate) (int, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(rates)*4)
	for _, rate := range rates {
		args = append(args,
			strings.ToUpper(rate.Currency),
			rate.Date.Format(domain.DateLayout),
			rate.Rate.String(),
			dayScore(rate.Date),
		)
	}

	added, err := saveRates.Run(ctx, r.client, []string{r.prefix}, args...).Int()
	if err != nil {
		return 0, err
	}
	return added, nil
}
