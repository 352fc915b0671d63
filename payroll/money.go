package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY & HOURS - decimal helpers
// =============================================================================
// Everything monetary (and every hour figure) is a decimal.Decimal.
// Floats never touch business arithmetic.

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Dollars builds a decimal from a float literal in tests and fixtures.
// Production values come from the store already as decimals.
func Dollars(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// HoursTolerance is the reconciliation tolerance for hour splits (±0.01).
var HoursTolerance = decimal.NewFromFloat(0.01)

// WithinTolerance reports |a-b| <= HoursTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(HoursTolerance)
}
