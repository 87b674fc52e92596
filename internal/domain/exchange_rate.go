package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReportingCurrency is the currency declarations are filed in.
const DefaultReportingCurrency = "RSD"

// ExchangeRate is the reporting-currency value of one unit of Currency on
// Date. Rates are immutable once stored.
type ExchangeRate struct {
	Date     time.Time
	Currency string
	Rate     decimal.Decimal
}

// Key identifies the rate in caches and stores.
func (r ExchangeRate) Key() string {
	return RateKey(r.Currency, r.Date)
}

// Validate checks the rate fields.
func (r ExchangeRate) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: rate date is required", ErrInvalidDate)
	}
	if err := ValidateCurrency(r.Currency); err != nil {
		return err
	}
	if !r.Rate.IsPositive() {
		return fmt.Errorf("%w: %s on %s", ErrInvalidRate, r.Currency, r.Date.Format(DateLayout))
	}
	return nil
}

// Normalize upper-cases the currency and truncates the date.
func (r *ExchangeRate) Normalize() {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Date = Day(r.Date)
}

// RateKey formats a (currency, date) lookup key.
func RateKey(currency string, date time.Time) string {
	return strings.ToUpper(currency) + ":" + date.Format(DateLayout)
}
