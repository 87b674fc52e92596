package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

// ConverterConfig configures a CurrencyConverter.
type ConverterConfig struct {
	ReportingCurrency string
	CacheTTL          time.Duration
	MaxStaleness      time.Duration
}

// CurrencyConverter resolves reporting-currency rates by date. Resolved
// lookups are memoized under the requested date, so repeated lookups return
// the same rate. A lookup answered by an earlier date stays memoized only
// until a rate for that currency is saved on or before the requested date,
// and only exact matches reach the shared cache.
type CurrencyConverter struct {
	source  RateSource
	shared  RateCache
	memo    *cache.Cache
	cfg     ConverterConfig
	metrics RecordedMetrics
	logger  zerolog.Logger
}

// NewCurrencyConverter creates a converter over source. shared may be nil.
func NewCurrencyConverter(source RateSource, shared RateCache, cfg ConverterConfig, metrics RecordedMetrics, logger zerolog.Logger) *CurrencyConverter {
	if cfg.ReportingCurrency == "" {
		cfg.ReportingCurrency = domain.DefaultReportingCurrency
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultRateCacheTTL
	}
	if cfg.MaxStaleness == 0 {
		cfg.MaxStaleness = DefaultRateMaxStaleness
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &CurrencyConverter{
		source:  source,
		shared:  shared,
		memo:    cache.New(cache.NoExpiration, 0),
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// ReportingCurrency returns the currency rates convert into.
func (c *CurrencyConverter) ReportingCurrency() string {
	return c.cfg.ReportingCurrency
}

// Rate returns the reporting-currency value of one unit of currency on date,
// falling back to the latest earlier rate. It returns *domain.MissingRateError
// when no rate exists on or before date.
func (c *CurrencyConverter) Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	date = domain.Day(date)

	if currency == c.cfg.ReportingCurrency {
		return decimal.NewFromInt(1), nil
	}

	key := domain.RateKey(currency, date)
	if v, ok := c.memo.Get(key); ok {
		return v.(memoRate).rate, nil
	}

	if c.shared != nil {
		if raw, err := c.shared.Get(ctx, key); err == nil {
			if rate, err := decimal.NewFromString(raw); err == nil {
				c.memoize(key, memoRate{currency: currency, requested: date, rate: rate, exact: true})
				return rate, nil
			}
		}
	}

	found, err := c.source.RateOnOrBefore(ctx, currency, date)
	if errors.Is(err, domain.ErrRateNotFound) {
		c.metrics.ObserveMissingRate(currency)
		return decimal.Zero, &domain.MissingRateError{Currency: currency, Date: date}
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("lookup rate %s: %w", key, err)
	}

	if age := date.Sub(domain.Day(found.Date)); age > c.cfg.MaxStaleness {
		c.logger.Warn().
			Str("currency", currency).
			Time("requested", date).
			Time("found", found.Date).
			Dur("age", age).
			Msg("using stale exchange rate")
	}

	exact := domain.Day(found.Date).Equal(date)
	c.memoize(key, memoRate{currency: currency, requested: date, rate: found.Rate, exact: exact})
	if exact && c.shared != nil {
		if err := c.shared.Set(ctx, key, found.Rate.String(), c.cfg.CacheTTL); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("rate cache write failed")
		}
	}

	return found.Rate, nil
}

type memoRate struct {
	currency  string
	requested time.Time
	rate      decimal.Decimal
	exact     bool
}

// memoize stores the first resolution for key and never overwrites it.
func (c *CurrencyConverter) memoize(key string, m memoRate) {
	_ = c.memo.Add(key, m, cache.NoExpiration)
}

// Forget drops memoized fallbacks that a rate of currency dated since could
// now answer more precisely. Exact matches stay, since stored rates never
// change.
func (c *CurrencyConverter) Forget(currency string, since time.Time) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	since = domain.Day(since)
	for key, item := range c.memo.Items() {
		m, ok := item.Object.(memoRate)
		if !ok || m.exact || m.currency != currency || m.requested.Before(since) {
			continue
		}
		c.memo.Delete(key)
	}
}

// Convert converts amount in currency on date into the reporting currency.
func (c *CurrencyConverter) Convert(ctx context.Context, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// RateUseCase manages stored exchange rates.
type RateUseCase struct {
	repo      RateRepository
	converter *CurrencyConverter
}

// NewRateUseCase creates a new RateUseCase.
func NewRateUseCase(repo RateRepository, converter *CurrencyConverter) *RateUseCase {
	return &RateUseCase{repo: repo, converter: converter}
}

// SaveRates validates and stores rates, returning how many were new.
func (uc *RateUseCase) SaveRates(ctx context.Context, rates []domain.ExchangeRate) (int, error) {
	normalized := make([]domain.ExchangeRate, 0, len(rates))
	for _, r := range rates {
		r.Normalize()
		if err := r.Validate(); err != nil {
			return 0, err
		}
		normalized = append(normalized, r)
	}

	n, err := uc.repo.Save(ctx, normalized)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		for _, r := range normalized {
			uc.converter.Forget(r.Currency, r.Date)
		}
	}
	return n, nil
}

// Lookup resolves the rate used for currency on date.
func (uc *RateUseCase) Lookup(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	return uc.converter.Rate(ctx, currency, date)
}
