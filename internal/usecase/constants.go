package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultRateCacheTTL is how long resolved rate lookups stay in the shared cache.
	DefaultRateCacheTTL = 30 * 24 * time.Hour

	// DefaultRateMaxStaleness is how old a fallback rate may be before it is logged.
	DefaultRateMaxStaleness = 10 * 24 * time.Hour

	// DefaultWithholdingWindowDays is how many days after a payment withholding tax is attributed to it.
	DefaultWithholdingWindowDays = 7

	// DefaultExemptHoldingYears is the holding period after which gains are exempt.
	DefaultExemptHoldingYears = 10
)

// DefaultTaxRate is the flat rate applied to gains and income.
var DefaultTaxRate = decimal.RequireFromString("0.15")

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type nopMetrics struct{}

func (nopMetrics) ObserveMerge(domain.MergeReport) {}
func (nopMetrics) ObserveGains(int, int) {}
func (nopMetrics) ObserveMissingRate(string) {}
func (nopMetrics) ObserveTransition(domain.DeclarationStatus, domain.DeclarationStatus) {}
func (nopMetrics) ObserveDeclarationsBuilt(domain.DeclarationType, int) {}
