package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS - Fixed-point, 2-decimal, half-up
// =============================================================================

// RoundCents rounds a money value to 2 decimal places, half-up.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustDecimal parses a decimal literal, panicking on malformed input.
// For constants and tests only.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("ledger: bad decimal literal " + s)
	}
	return d
}

// MaxZero floors a money value at zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SumPayments totals the amounts of a set of payments.
func SumPayments(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
