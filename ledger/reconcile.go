/*
reconcile.go - Ledger reconciliation engine

PURPOSE:
  The source-of-truth invariant for an entry:

    totalPaid = sum of linked payment amounts
    remaining = max(borrowed - totalPaid, 0)
    status    = Paid           if remaining == 0
              = PartiallyPaid  if 0 < totalPaid < borrowed
              = Unpaid         otherwise
    dateFullyPaid = set once when remaining first reaches 0

  Two code paths maintain it and must converge on the same result for the
  same payment set:
    1. ApplyPaymentDelta - incremental, on every payment create/update
    2. Reconcile - full recompute, used by the auto-complete sweep

  Penalty assessment (terms.go) bypasses this formula and adds directly to
  remaining, possibly flipping status back from Paid. The two mechanisms
  compose because both run inside the same per-entry atomic step and always
  operate on the freshly loaded entry, never a stale copy.

OVERPAYMENT:
  A payment exceeding the remaining balance is neither capped nor rejected;
  the excess is recorded as an informational change amount on the payment
  and remaining simply floors at zero.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeAmount computes the informational excess of a payment over the
// entry's current remaining balance. Zero when the payment fits.
func ChangeAmount(remaining, payment decimal.Decimal) decimal.Decimal {
	if payment.GreaterThan(remaining) {
		return payment.Sub(remaining)
	}
	return decimal.Zero
}

// ApplyPaymentDelta applies a payment amount delta to an entry. The delta is
// positive for new payments and may be negative when a payment is edited
// down. Remaining floors at zero.
//
// Editing an overpaid payment downward can transiently leave
// remaining > borrowed with status still Paid; the next Reconcile over the
// raw payment records restores the invariant.
func ApplyPaymentDelta(entry *Entry, delta decimal.Decimal, today time.Time) {
	entry.AmountRemaining = MaxZero(entry.AmountRemaining.Sub(delta))

	if entry.AmountRemaining.IsZero() {
		entry.Status = StatusPaid
		markFullyPaid(entry, today)
	} else if entry.AmountRemaining.LessThan(entry.AmountBorrowed) {
		entry.Status = StatusPartiallyPaid
	}
}

// Reconcile fully recomputes an entry's remaining balance and status from
// the total of its linked payments. Idempotent: running it twice with the
// same total yields the same (remaining, status). Returns true when this
// pass completed the entry (remaining reached zero).
func Reconcile(entry *Entry, totalPaid decimal.Decimal, today time.Time) bool {
	entry.AmountRemaining = MaxZero(entry.AmountBorrowed.Sub(totalPaid))

	if entry.AmountRemaining.IsZero() {
		entry.Status = StatusPaid
		markFullyPaid(entry, today)
		return true
	}
	if totalPaid.IsPositive() && totalPaid.LessThan(entry.AmountBorrowed) {
		entry.Status = StatusPartiallyPaid
	}
	return false
}

// ForceComplete marks an entry paid directly: remaining zeroed, status Paid,
// date recorded. Used by the manual completion shortcut; the caller is
// responsible for forcing the entry's non-terminal terms to Paid with no
// penalty (early completion waives further fees).
func ForceComplete(entry *Entry, today time.Time) {
	entry.Status = StatusPaid
	entry.AmountRemaining = decimal.Zero
	markFullyPaid(entry, today)
}

// markFullyPaid records the completion date once; it is never overwritten.
func markFullyPaid(entry *Entry, today time.Time) {
	if entry.DateFullyPaid == nil {
		d := Day(today)
		entry.DateFullyPaid = &d
	}
}
