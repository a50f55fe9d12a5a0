/*
allocation.go - Allocation status resolver

PURPOSE:
  For a group-split entry, each allocation's status and share of the total
  are pure functions over (entry, allocation, payments). Nothing here is
  ever stored; recomputing on every read avoids a second source of truth.

RESOLUTION ORDER:
  1. Entry marked Paid: every allocation is Paid (completion overrides
     line-item tracking).
  2. Explicit payment->allocation links exist: sum their attributed amounts.
  3. Fallback (legacy data with no links): sum all of the entry's payments
     made by the allocation's payee person.
  The summed total then maps 0 -> Unpaid, >= allocation amount -> Paid,
  otherwise PartiallyPaid.
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// ResolveAllocationStatus derives the status of one allocation. linked is
// the set of explicit payment links for this allocation; entryPayments is
// every payment linked to the owning entry (used only on the fallback path).
func ResolveAllocationStatus(entry *Entry, alloc *Allocation, linked []AllocationPayment, entryPayments []*Payment) PayStatus {
	if entry.Status == StatusPaid {
		return StatusPaid
	}

	var totalPaid decimal.Decimal
	if len(linked) > 0 {
		for _, lp := range linked {
			totalPaid = totalPaid.Add(lp.Amount)
		}
	} else {
		for _, p := range entryPayments {
			if p.PayeePersonID == alloc.PersonID {
				totalPaid = totalPaid.Add(p.Amount)
			}
		}
	}

	switch {
	case totalPaid.IsZero():
		return StatusUnpaid
	case totalPaid.GreaterThanOrEqual(alloc.Amount):
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

// PercentageOfTotal computes the allocation's share of the entry's borrowed
// amount as a percentage rounded half-up to 4 decimals, or zero when the
// borrowed amount is zero.
func PercentageOfTotal(allocAmount, borrowed decimal.Decimal) decimal.Decimal {
	if !borrowed.IsPositive() {
		return decimal.Zero
	}
	return allocAmount.Div(borrowed).Mul(decimal.NewFromInt(100)).Round(4)
}
