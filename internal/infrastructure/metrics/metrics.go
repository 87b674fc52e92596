package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/taxledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	MergeRecords  *prometheus.CounterVec
	MergeWarnings prometheus.Counter

	// Gains metrics
	GainEvents     prometheus.Counter
	UnmatchedSells prometheus.Counter
	MissingRates   *prometheus.CounterVec

	// Declaration metrics
	DeclarationsBuilt      *prometheus.CounterVec
	DeclarationTransitions *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		MergeRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_merge_records_total",
				Help: "Records processed by ledger upserts, by outcome",
			},
			[]string{"outcome"},
		),
		MergeWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_merge_warnings_total",
			Help: "Warnings raised while reconciling records",
		}),

		// Gains metrics
		GainEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_gain_events_total",
			Help: "Gain events produced by FIFO matching",
		}),
		UnmatchedSells: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_unmatched_sells_total",
			Help: "Sells that could not be matched to open lots",
		}),
		MissingRates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_missing_rates_total",
				Help: "Rate lookups with no rate on or before the requested date",
			},
			[]string{"currency"},
		),

		// Declaration metrics
		DeclarationsBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_declarations_built_total",
				Help: "Declarations created, by type",
			},
			[]string{"type"},
		),
		DeclarationTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_declaration_transitions_total",
				Help: "Declaration status changes",
			},
			[]string{"from", "to"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taxledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}

// ObserveMerge records the outcome counts of one upsert.
func (m *Metrics) ObserveMerge(report domain.MergeReport) {
	m.MergeRecords.WithLabelValues("identical").Add(float64(report.Identical))
	m.MergeRecords.WithLabelValues("updated").Add(float64(report.Updated))
	m.MergeRecords.WithLabelValues("new").Add(float64(report.New))
	m.MergeRecords.WithLabelValues("removed").Add(float64(report.Removed))
	m.MergeRecords.WithLabelValues("superseded").Add(float64(report.Superseded))
	m.MergeWarnings.Add(float64(len(report.Warnings)))
}

// ObserveGains records one gains computation.
func (m *Metrics) ObserveGains(events, unmatched int) {
	m.GainEvents.Add(float64(events))
	m.UnmatchedSells.Add(float64(unmatched))
}

// ObserveMissingRate records a failed rate lookup.
func (m *Metrics) ObserveMissingRate(currency string) {
	m.MissingRates.WithLabelValues(currency).Inc()
}

// ObserveTransition records a declaration status change.
func (m *Metrics) ObserveTransition(from, to domain.DeclarationStatus) {
	m.DeclarationTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveDeclarationsBuilt records created declarations.
func (m *Metrics) ObserveDeclarationsBuilt(typ domain.DeclarationType, n int) {
	m.DeclarationsBuilt.WithLabelValues(string(typ)).Add(float64(n))
}
