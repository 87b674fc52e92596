// Package app assembles the ledger, rate, gains and declaration use cases
// over the configured storage backends.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/taxledger/internal/adapter/http/handler"
	"github.com/iho/taxledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/taxledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/taxledger/internal/adapter/repository/redis"
	"github.com/iho/taxledger/internal/infrastructure/config"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
	"github.com/iho/taxledger/internal/infrastructure/postgres"
	"github.com/iho/taxledger/internal/infrastructure/redis"
	"github.com/iho/taxledger/internal/usecase"
)

// App holds the wired use cases and the resources they depend on.
type App struct {
	Ledger       *usecase.LedgerUseCase
	Rates        *usecase.RateUseCase
	Converter    *usecase.CurrencyConverter
	Gains        *usecase.GainsUseCase
	Declarations *usecase.DeclarationUseCase

	Metrics *metrics.Metrics
	// Checks report readiness of the external dependencies in use.
	Checks map[string]handler.HealthCheck

	closers []io.Closer
}

// Options overrides parts of the wiring.
type Options struct {
	// Registerer receives the application metrics. Defaults to a fresh registry.
	Registerer prometheus.Registerer
	Clock      usecase.Clock
	// Store replaces the in-memory store, so callers can share one.
	Store *memory.Store
}

type storage struct {
	txManager    usecase.TransactionManager
	transactions usecase.TransactionRepository
	rates        usecase.RateRepository
	declarations usecase.DeclarationRepository
	retrier      usecase.Retrier
}

// New connects to the configured backends and builds the use cases. Close
// releases the connections.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	taxRate, err := cfg.TaxRateDecimal()
	if err != nil {
		return nil, err
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	a := &App{
		Metrics: metrics.New(reg),
		Checks:  make(map[string]handler.HealthCheck),
	}

	store, err := a.openStorage(ctx, cfg, logger, opts.Store)
	if err != nil {
		a.Close()
		return nil, err
	}

	var rateCache usecase.RateCache
	if cfg.UsesRedis() {
		client, err := redis.NewClient(ctx, redis.ClientConfig{
			URL:            cfg.RedisURL,
			ConnectTimeout: cfg.RedisConnectTimeout,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, client)
		a.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info().Msg("connected to redis")

		if cfg.RedisEnabled {
			rateCache = redisRepo.NewRateCache(client)
		}
		if cfg.RateBackend == config.BackendRedis {
			store.rates = redisRepo.NewRateRepository(client)
		}
	}

	a.Converter = usecase.NewCurrencyConverter(store.rates, rateCache, usecase.ConverterConfig{
		ReportingCurrency: cfg.ReportingCurrency,
		CacheTTL:          cfg.RateCacheTTL,
		MaxStaleness:      cfg.RateMaxStaleness,
	}, a.Metrics, logger)
	a.Rates = usecase.NewRateUseCase(store.rates, a.Converter)

	ledgerOpts := []usecase.LedgerOption{
		usecase.WithLedgerMetrics(a.Metrics),
		usecase.WithLedgerLogger(logger),
	}
	if store.retrier != nil {
		ledgerOpts = append(ledgerOpts, usecase.WithLedgerRetrier(store.retrier))
	}
	a.Ledger = usecase.NewLedgerUseCase(store.txManager, store.transactions, ledgerOpts...)

	a.Gains = usecase.NewGainsUseCase(store.transactions, a.Converter, usecase.GainsConfig{
		ExemptHoldingYears: cfg.ExemptHoldingYears,
	}, a.Metrics, logger)

	builder := usecase.NewDeclarationBuilder(store.transactions, a.Gains, a.Converter, usecase.BuilderConfig{
		TaxRate:               taxRate,
		WithholdingWindowDays: cfg.WithholdingWindowDays,
	}, opts.Clock, logger)
	a.Declarations = usecase.NewDeclarationUseCase(
		store.txManager,
		store.declarations,
		builder,
		postgresRepo.NewULIDGenerator(),
		opts.Clock,
		a.Metrics,
		logger,
	)

	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger, shared *memory.Store) (*storage, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.DatabaseMaxConns,
			MinConns:    cfg.DatabaseMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, closerFunc(pool.Close))
		a.Checks["postgres"] = pool.Ping
		logger.Info().Msg("connected to postgres")

		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger).Up(); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		return &storage{
			txManager:    postgresRepo.NewTxManager(pool),
			transactions: postgresRepo.NewTransactionRepository(pool),
			rates:        postgresRepo.NewRateRepository(pool),
			declarations: postgresRepo.NewDeclarationRepository(pool),
			retrier:      postgresRepo.NewRetrier(logger),
		}, nil
	default:
		store := shared
		if store == nil {
			store = memory.NewStore()
		}
		return &storage{
			txManager:    memory.NewTxManager(store),
			transactions: memory.NewTransactionRepository(store),
			rates:        memory.NewRateRepository(store),
			declarations: memory.NewDeclarationRepository(store),
		}, nil
	}
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
