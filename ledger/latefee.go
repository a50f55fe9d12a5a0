package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LATE FEE - The single penalty formula
// =============================================================================

var (
	lateFeeRate    = decimal.NewFromFloat(0.05)
	minimumLateFee = decimal.NewFromInt(50)
)

// LateFee computes the penalty for a lapsed or skipped term:
// max(amountPerTerm * 5% rounded half-up to 2 decimals, 50.00).
//
// Every penalty site (skip, delinquency sweep, delinquent-pay) calls this
// function and nothing else, so the fee cannot diverge between paths.
func LateFee(amountPerTerm decimal.Decimal) decimal.Decimal {
	fee := RoundCents(amountPerTerm.Mul(lateFeeRate))
	if fee.GreaterThan(minimumLateFee) {
		return fee
	}
	return minimumLateFee
}
