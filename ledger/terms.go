/*
terms.go - Term lifecycle engine

PURPOSE:
  The state machine governing a single installment term:

    NotStarted -> {Unpaid, Delinquent, Paid, Skipped}
    Unpaid     -> {Delinquent, Paid, Skipped}
    Delinquent -> {Paid, Skipped}
    Paid, Skipped are terminal.

  Every transition that assesses a penalty also adds it to the owning
  entry's remaining balance, which is why these functions take the term,
  its plan, and its entry together and mutate them in place. Persistence is
  the caller's job (one atomic step per entry).

PENALTY RULES:
  - Delinquency (sweep) and delinquent-pay assess only when no penalty was
    previously recorded.
  - Skip recomputes and re-adds the penalty unconditionally. The asymmetry
    is intentional: skip is a distinct terminal action.
  - Early completion of the whole entry waives penalties entirely
    (see reconcile.go ForceComplete).

SEE ALSO:
  - latefee.go: The one penalty formula
  - service.go: Loads records, applies these transitions, persists
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SweepTerm applies the sweep-to-delinquent transition: a term whose due
// date is strictly before today and whose status is Unpaid or NotStarted
// becomes Delinquent, assessing a penalty if none was recorded yet. Returns
// true when the term (and possibly the entry balance) changed.
//
// A term due today has not lapsed; only strictly-before-today qualifies.
func SweepTerm(term *InstallmentTerm, plan *InstallmentPlan, entry *Entry, today time.Time) bool {
	if !Day(term.DueDate).Before(Day(today)) {
		return false
	}
	if term.Status != TermUnpaid && term.Status != TermNotStarted {
		return false
	}

	term.Status = TermDelinquent
	if term.PenaltyApplied.IsZero() {
		penalty := LateFee(plan.AmountPerTerm)
		term.PenaltyApplied = penalty
		entry.AmountRemaining = entry.AmountRemaining.Add(penalty)
	}
	return true
}

// Skip marks a term Skipped. Unlike delinquency, skip recomputes and stores
// the penalty even if one was previously set, and adds it to the entry's
// remaining balance again. Returns the penalty applied.
func Skip(term *InstallmentTerm, plan *InstallmentPlan, entry *Entry) decimal.Decimal {
	penalty := LateFee(plan.AmountPerTerm)
	term.Status = TermSkipped
	term.PenaltyApplied = penalty
	entry.AmountRemaining = entry.AmountRemaining.Add(penalty)
	return penalty
}

// SetStatus overwrites a term's status. The only side effect is the
// delinquent-pay rule: transitioning Delinquent -> Paid assesses a late fee
// when none was recorded, adding it to the entry's remaining balance before
// the term is marked paid. Paying from any other prior state never assesses
// a penalty.
func SetStatus(term *InstallmentTerm, plan *InstallmentPlan, entry *Entry, status TermStatus) {
	if status == TermPaid && term.Status == TermDelinquent && term.PenaltyApplied.IsZero() {
		penalty := LateFee(plan.AmountPerTerm)
		term.PenaltyApplied = penalty
		entry.AmountRemaining = entry.AmountRemaining.Add(penalty)
	}
	term.Status = status
}

// SkipPenaltyPreview returns the penalty Skip would apply, without mutating
// anything.
func SkipPenaltyPreview(plan *InstallmentPlan) decimal.Decimal {
	return LateFee(plan.AmountPerTerm)
}

// DelinquentFeePreview returns the fee that paying the term right now would
// assess: zero unless the term is currently Delinquent.
func DelinquentFeePreview(term *InstallmentTerm, plan *InstallmentPlan) decimal.Decimal {
	if term.Status != TermDelinquent {
		return decimal.Zero
	}
	return LateFee(plan.AmountPerTerm)
}
