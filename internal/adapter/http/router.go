package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/taxledger/internal/adapter/http/handler"
	"github.com/iho/taxledger/internal/adapter/http/middleware"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler      *handler.LedgerHandler
	RateHandler        *handler.RateHandler
	GainsHandler       *handler.GainsHandler
	DeclarationHandler *handler.DeclarationHandler
	HealthHandler      *handler.HealthHandler

	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Ledger
		r.Route("/ledger", func(r chi.Router) {
			r.Post("/reconcile", cfg.LedgerHandler.Reconcile)
			r.Post("/transactions", cfg.LedgerHandler.Upsert)
			r.Get("/transactions", cfg.LedgerHandler.Query)
			r.Get("/consistency", cfg.LedgerHandler.Consistency)
		})

		// Rates
		r.Route("/rates", func(r chi.Router) {
			r.Post("/", cfg.RateHandler.Save)
			r.Get("/{currency}/{date}", cfg.RateHandler.Lookup)
		})

		r.Get("/gains", cfg.GainsHandler.Compute)
		r.Get("/gains/activity", cfg.GainsHandler.Activity)

		// Declarations
		r.Route("/declarations", func(r chi.Router) {
			r.Get("/", cfg.DeclarationHandler.List)
			r.Get("/preview", cfg.DeclarationHandler.Preview)
			r.Post("/build", cfg.DeclarationHandler.Build)
			r.Get("/{id}", cfg.DeclarationHandler.Get)
			r.Get("/{id}/document", cfg.DeclarationHandler.Document)
			r.Post("/{id}/transition", cfg.DeclarationHandler.Transition)
			r.Put("/{id}/assessed-tax", cfg.DeclarationHandler.SetAssessedTax)
			r.Put("/{id}/attachments/{filename}", cfg.DeclarationHandler.Attach)
			r.Delete("/{id}/attachments/{filename}", cfg.DeclarationHandler.Detach)
		})
	})

	return r
}
