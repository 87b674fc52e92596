package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MinorUnits returns the number of decimal places of currency, defaulting
// to 2 for unknown codes.
func MinorUnits(currency string) int32 {
	c := money.GetCurrency(currency)
	if c == nil {
		return 2
	}
	return int32(c.Fraction)
}

// RoundHalfUp rounds amount to the minor unit of currency, halves away from
// zero.
func RoundHalfUp(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnits(currency))
}

// FormatAmount renders amount with exactly the currency's minor unit digits.
func FormatAmount(amount decimal.Decimal, currency string) string {
	return RoundHalfUp(amount, currency).StringFixed(MinorUnits(currency))
}

// DisplayAmount renders amount with the currency's symbol and separators.
func DisplayAmount(amount decimal.Decimal, currency string) string {
	units := MinorUnits(currency)
	factor := decimal.New(1, units)
	minor := RoundHalfUp(amount, currency).Mul(factor).IntPart()
	return money.New(minor, currency).Display()
}
