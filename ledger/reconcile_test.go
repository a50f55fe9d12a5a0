package ledger_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/warp/loan-ledger/ledger"
)

func unpaidEntry(borrowed string) *ledger.Entry {
	return &ledger.Entry{
		ID:              uuid.New(),
		Kind:            ledger.StraightExpense,
		AmountBorrowed:  ledger.MustDecimal(borrowed),
		AmountRemaining: ledger.MustDecimal(borrowed),
		Status:          ledger.StatusUnpaid,
	}
}

// =============================================================================
// CHANGE AMOUNT TESTS
// =============================================================================

func TestChangeAmount_Overpayment(t *testing.T) {
	// GIVEN: An entry with 1000 remaining
	// WHEN: Paying 1200
	// THEN: Change is 200; the excess is informational only

	change := ledger.ChangeAmount(ledger.MustDecimal("1000"), ledger.MustDecimal("1200"))
	if !change.Equal(ledger.MustDecimal("200")) {
		t.Errorf("change = %s, want 200", change)
	}
}

func TestChangeAmount_ExactOrUnder_Zero(t *testing.T) {
	remaining := ledger.MustDecimal("1000")
	for _, amount := range []string{"1000", "400"} {
		if got := ledger.ChangeAmount(remaining, ledger.MustDecimal(amount)); !got.IsZero() {
			t.Errorf("change for payment %s = %s, want 0", amount, got)
		}
	}
}

// =============================================================================
// DELTA PATH TESTS
// =============================================================================

func TestApplyPaymentDelta_PartialPayment(t *testing.T) {
	// GIVEN: An unpaid entry of 1000
	// WHEN: Applying a 400 payment
	// THEN: Remaining 600, status PartiallyPaid, no completion date

	entry := unpaidEntry("1000")
	ledger.ApplyPaymentDelta(entry, ledger.MustDecimal("400"), time.Now())

	if !entry.AmountRemaining.Equal(ledger.MustDecimal("600")) {
		t.Errorf("remaining = %s, want 600", entry.AmountRemaining)
	}
	if entry.Status != ledger.StatusPartiallyPaid {
		t.Errorf("status = %s, want PARTIALLY_PAID", entry.Status)
	}
	if entry.DateFullyPaid != nil {
		t.Error("dateFullyPaid set on a partial payment")
	}
}

func TestApplyPaymentDelta_OverpaymentFloorsAtZero(t *testing.T) {
	// GIVEN: An unpaid entry of 1000
	// WHEN: Applying a 1200 payment
	// THEN: Remaining floors at 0, status Paid, completion date set

	entry := unpaidEntry("1000")
	today := ledger.NewDate(2025, time.August, 1)
	ledger.ApplyPaymentDelta(entry, ledger.MustDecimal("1200"), today)

	if !entry.AmountRemaining.IsZero() {
		t.Errorf("remaining = %s, want 0", entry.AmountRemaining)
	}
	if entry.Status != ledger.StatusPaid {
		t.Errorf("status = %s, want PAID", entry.Status)
	}
	if entry.DateFullyPaid == nil || !entry.DateFullyPaid.Equal(today) {
		t.Errorf("dateFullyPaid = %v, want %v", entry.DateFullyPaid, today)
	}
}

func TestApplyPaymentDelta_NegativeDelta_EditDown(t *testing.T) {
	// GIVEN: An entry paid down to 600
	// WHEN: A payment is edited from 400 down to 100 (delta -300)
	// THEN: Remaining climbs back to 900

	entry := unpaidEntry("1000")
	ledger.ApplyPaymentDelta(entry, ledger.MustDecimal("400"), time.Now())
	ledger.ApplyPaymentDelta(entry, ledger.MustDecimal("-300"), time.Now())

	if !entry.AmountRemaining.Equal(ledger.MustDecimal("900")) {
		t.Errorf("remaining = %s, want 900", entry.AmountRemaining)
	}
	if entry.Status != ledger.StatusPartiallyPaid {
		t.Errorf("status = %s, want PARTIALLY_PAID", entry.Status)
	}
}

// =============================================================================
// FULL RECOMPUTE TESTS
// =============================================================================

func TestReconcile_Idempotent(t *testing.T) {
	// GIVEN: An entry of 1000 with 400 total paid
	// WHEN: Reconciling twice with the same total
	// THEN: Same remaining and status both times

	entry := unpaidEntry("1000")
	paid := ledger.MustDecimal("400")
	now := time.Now()

	ledger.Reconcile(entry, paid, now)
	first := entry.AmountRemaining
	ledger.Reconcile(entry, paid, now)

	if !entry.AmountRemaining.Equal(first) {
		t.Errorf("second pass changed remaining: %s vs %s", first, entry.AmountRemaining)
	}
	if entry.Status != ledger.StatusPartiallyPaid {
		t.Errorf("status = %s, want PARTIALLY_PAID", entry.Status)
	}
}

func TestReconcile_ConvergesWithDeltaPath(t *testing.T) {
	// GIVEN: Two copies of the same entry and payments 300 + 700
	// WHEN: One is updated incrementally, the other by full recompute
	// THEN: Both land on remaining 0, Paid

	now := time.Now()

	incremental := unpaidEntry("1000")
	ledger.ApplyPaymentDelta(incremental, ledger.MustDecimal("300"), now)
	ledger.ApplyPaymentDelta(incremental, ledger.MustDecimal("700"), now)

	recomputed := unpaidEntry("1000")
	ledger.Reconcile(recomputed, ledger.MustDecimal("1000"), now)

	if !incremental.AmountRemaining.Equal(recomputed.AmountRemaining) {
		t.Errorf("remaining diverged: delta %s vs recompute %s",
			incremental.AmountRemaining, recomputed.AmountRemaining)
	}
	if incremental.Status != recomputed.Status || incremental.Status != ledger.StatusPaid {
		t.Errorf("status diverged: %s vs %s", incremental.Status, recomputed.Status)
	}
}

func TestReconcile_ReportsCompletion(t *testing.T) {
	entry := unpaidEntry("500")
	if ledger.Reconcile(entry, ledger.MustDecimal("499"), time.Now()) {
		t.Error("entry with remaining 1 reported completed")
	}
	if !ledger.Reconcile(entry, ledger.MustDecimal("500"), time.Now()) {
		t.Error("fully covered entry not reported completed")
	}
}

func TestReconcile_ZeroPaid_StaysUnpaid(t *testing.T) {
	entry := unpaidEntry("500")
	ledger.Reconcile(entry, ledger.MustDecimal("0"), time.Now())
	if entry.Status != ledger.StatusUnpaid {
		t.Errorf("status = %s, want UNPAID", entry.Status)
	}
}

// =============================================================================
// COMPLETION DATE TESTS
// =============================================================================

func TestMarkFullyPaid_SetOnce(t *testing.T) {
	// GIVEN: An entry completed on day one
	// WHEN: A later reconciliation pass also finds it complete
	// THEN: The original completion date is preserved

	entry := unpaidEntry("100")
	day1 := ledger.NewDate(2025, time.June, 1)
	day2 := ledger.NewDate(2025, time.June, 15)

	ledger.Reconcile(entry, ledger.MustDecimal("100"), day1)
	ledger.Reconcile(entry, ledger.MustDecimal("100"), day2)

	if entry.DateFullyPaid == nil || !entry.DateFullyPaid.Equal(day1) {
		t.Errorf("dateFullyPaid = %v, want %v (first completion)", entry.DateFullyPaid, day1)
	}
}

func TestForceComplete(t *testing.T) {
	// GIVEN: A partially paid entry
	// WHEN: Forcing completion
	// THEN: Remaining zeroed, Paid, date recorded

	entry := unpaidEntry("1000")
	ledger.ApplyPaymentDelta(entry, ledger.MustDecimal("400"), time.Now())

	today := ledger.NewDate(2025, time.July, 4)
	ledger.ForceComplete(entry, today)

	if !entry.AmountRemaining.IsZero() {
		t.Errorf("remaining = %s, want 0", entry.AmountRemaining)
	}
	if entry.Status != ledger.StatusPaid {
		t.Errorf("status = %s, want PAID", entry.Status)
	}
	if entry.DateFullyPaid == nil || !entry.DateFullyPaid.Equal(today) {
		t.Errorf("dateFullyPaid = %v, want %v", entry.DateFullyPaid, today)
	}
}

// =============================================================================
// PENALTY INTERACTION
// =============================================================================

func TestPenalty_FlipsPaidEntryBack(t *testing.T) {
	// GIVEN: A 1000/4 installment entry fully paid (remaining 0)
	// WHEN: A lapsed term is swept and its penalty lands on the balance
	// THEN: Remaining is 50; the next recompute from payments restores the
	//       paid state only if payments cover it

	today := ledger.NewDate(2025, time.July, 10)
	entry, plan, term := installmentFixture("1000", 4, today.AddDate(0, 0, -1))
	ledger.Reconcile(entry, ledger.MustDecimal("1000"), today)

	ledger.SweepTerm(term, plan, entry, today)

	if !entry.AmountRemaining.Equal(ledger.MustDecimal("50")) {
		t.Errorf("remaining = %s, want 50 after penalty", entry.AmountRemaining)
	}
}
