package ledger_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/loan-ledger/ledger"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// installmentFixture builds an entry + plan + single term for lifecycle tests.
func installmentFixture(total string, termCount int, due time.Time) (*ledger.Entry, *ledger.InstallmentPlan, *ledger.InstallmentTerm) {
	entry := &ledger.Entry{
		ID:              uuid.New(),
		Kind:            ledger.InstallmentExpense,
		AmountBorrowed:  ledger.MustDecimal(total),
		AmountRemaining: ledger.MustDecimal(total),
		Status:          ledger.StatusUnpaid,
	}
	plan := &ledger.InstallmentPlan{
		ID:            uuid.New(),
		EntryID:       entry.ID,
		TermCount:     termCount,
		AmountPerTerm: ledger.AmountPerTerm(entry.AmountBorrowed, termCount),
	}
	term := &ledger.InstallmentTerm{
		ID:             uuid.New(),
		PlanID:         plan.ID,
		Number:         1,
		DueDate:        due,
		Status:         ledger.TermUnpaid,
		PenaltyApplied: decimal.Zero,
	}
	return entry, plan, term
}

// =============================================================================
// LATE FEE TESTS
// =============================================================================

func TestLateFee_MinimumFloor(t *testing.T) {
	// GIVEN: A per-term amount whose 5% is below 50
	// WHEN: Computing the late fee
	// THEN: The 50.00 floor applies (1000/4 = 250, 5% = 12.50 -> 50)

	fee := ledger.LateFee(ledger.MustDecimal("250"))
	if !fee.Equal(ledger.MustDecimal("50")) {
		t.Errorf("late fee = %s, want 50", fee)
	}
}

func TestLateFee_PercentageAboveFloor(t *testing.T) {
	// GIVEN: A per-term amount whose 5% exceeds 50
	// WHEN: Computing the late fee
	// THEN: The percentage wins (2000 * 5% = 100)

	fee := ledger.LateFee(ledger.MustDecimal("2000"))
	if !fee.Equal(ledger.MustDecimal("100")) {
		t.Errorf("late fee = %s, want 100", fee)
	}
}

func TestLateFee_ExactlyFifty_FloorStillApplies(t *testing.T) {
	// 1000 * 5% = 50 exactly; not greater than the floor, so the floor value
	// is returned either way.
	fee := ledger.LateFee(ledger.MustDecimal("1000"))
	if !fee.Equal(ledger.MustDecimal("50")) {
		t.Errorf("late fee = %s, want 50", fee)
	}
}

// =============================================================================
// DELINQUENCY SWEEP TESTS
// =============================================================================

func TestSweepTerm_LapsedUnpaid_BecomesDelinquentWithPenalty(t *testing.T) {
	// GIVEN: A 1000/4 installment with a term due yesterday, still Unpaid
	// WHEN: Running the sweep today
	// THEN: Term becomes Delinquent, penalty 50 recorded, remaining 1050

	today := ledger.NewDate(2025, time.July, 10)
	entry, plan, term := installmentFixture("1000", 4, today.AddDate(0, 0, -1))

	changed := ledger.SweepTerm(term, plan, entry, today)

	if !changed {
		t.Fatal("sweep reported no change")
	}
	if term.Status != ledger.TermDelinquent {
		t.Errorf("status = %s, want DELINQUENT", term.Status)
	}
	if !term.PenaltyApplied.Equal(ledger.MustDecimal("50")) {
		t.Errorf("penalty = %s, want 50", term.PenaltyApplied)
	}
	if !entry.AmountRemaining.Equal(ledger.MustDecimal("1050")) {
		t.Errorf("remaining = %s, want 1050", entry.AmountRemaining)
	}
}

func TestSweepTerm_DueToday_NotDelinquent(t *testing.T) {
	// GIVEN: A term due exactly today
	// WHEN: Running the sweep
	// THEN: Nothing changes; only strictly-before-today lapses

	today := ledger.NewDate(2025, time.July, 10)
	entry, plan, term := installmentFixture("1000", 4, today)

	if ledger.SweepTerm(term, plan, entry, today) {
		t.Fatal("term due today must not be swept")
	}
	if term.Status != ledger.TermUnpaid {
		t.Errorf("status = %s, want UNPAID", term.Status)
	}
}

func TestSweepTerm_TerminalStatuses_Untouched(t *testing.T) {
	// GIVEN: Lapsed terms already Paid, Skipped, or Delinquent
	// WHEN: Running the sweep
	// THEN: No transition and no double penalty

	today := ledger.NewDate(2025, time.July, 10)
	for _, status := range []ledger.TermStatus{ledger.TermPaid, ledger.TermSkipped, ledger.TermDelinquent} {
		entry, plan, term := installmentFixture("1000", 4, today.AddDate(0, 0, -5))
		term.Status = status
		before := entry.AmountRemaining

		if ledger.SweepTerm(term, plan, entry, today) {
			t.Errorf("%s term must not be swept", status)
		}
		if !entry.AmountRemaining.Equal(before) {
			t.Errorf("%s term: remaining changed from %s to %s", status, before, entry.AmountRemaining)
		}
	}
}

func TestSweepTerm_PenaltyAlreadySet_NoSecondAssessment(t *testing.T) {
	// GIVEN: A lapsed NotStarted term that already carries a penalty
	// WHEN: Running the sweep
	// THEN: Status flips to Delinquent but the balance is untouched

	today := ledger.NewDate(2025, time.July, 10)
	entry, plan, term := installmentFixture("1000", 4, today.AddDate(0, 0, -1))
	term.Status = ledger.TermNotStarted
	term.PenaltyApplied = ledger.MustDecimal("50")
	before := entry.AmountRemaining

	if !ledger.SweepTerm(term, plan, entry, today) {
		t.Fatal("sweep reported no change")
	}
	if term.Status != ledger.TermDelinquent {
		t.Errorf("status = %s, want DELINQUENT", term.Status)
	}
	if !entry.AmountRemaining.Equal(before) {
		t.Errorf("remaining changed from %s to %s", before, entry.AmountRemaining)
	}
}

// =============================================================================
// SKIP TESTS
// =============================================================================

func TestSkip_AssessesPenaltyAndMarksSkipped(t *testing.T) {
	// GIVEN: A 2000/1 installment (per-term 2000, 5% = 100)
	// WHEN: Skipping the term
	// THEN: Penalty 100, status Skipped, remaining 2100

	entry, plan, term := installmentFixture("2000", 1, ledger.NewDate(2025, time.July, 1))

	penalty := ledger.Skip(term, plan, entry)

	if !penalty.Equal(ledger.MustDecimal("100")) {
		t.Errorf("penalty = %s, want 100", penalty)
	}
	if term.Status != ledger.TermSkipped {
		t.Errorf("status = %s, want SKIPPED", term.Status)
	}
	if !entry.AmountRemaining.Equal(ledger.MustDecimal("2100")) {
		t.Errorf("remaining = %s, want 2100", entry.AmountRemaining)
	}
}

func TestSkip_RecomputesEvenWhenPenaltySet(t *testing.T) {
	// GIVEN: A term that was already assessed 50 by the delinquency sweep
	// WHEN: Skipping it
	// THEN: The penalty is re-added; skip does not check the existing value

	entry, plan, term := installmentFixture("1000", 4, ledger.NewDate(2025, time.July, 1))
	term.Status = ledger.TermDelinquent
	term.PenaltyApplied = ledger.MustDecimal("50")
	entry.AmountRemaining = ledger.MustDecimal("1050")

	ledger.Skip(term, plan, entry)

	if !term.PenaltyApplied.Equal(ledger.MustDecimal("50")) {
		t.Errorf("penalty = %s, want 50", term.PenaltyApplied)
	}
	if !entry.AmountRemaining.Equal(ledger.MustDecimal("1100")) {
		t.Errorf("remaining = %s, want 1100 (penalty added twice)", entry.AmountRemaining)
	}
}

// =============================================================================
// STATUS OVERWRITE TESTS
// =============================================================================

func TestSetStatus_DelinquentToPaid_AssessesFee(t *testing.T) {
	// GIVEN: A Delinquent term with no penalty recorded
	// WHEN: Overwriting status to Paid
	// THEN: The delinquent-pay fee is assessed before marking paid

	entry, plan, term := installmentFixture("1000", 4, ledger.NewDate(2025, time.July, 1))
	term.Status = ledger.TermDelinquent

	ledger.SetStatus(term, plan, entry, ledger.TermPaid)

	if term.Status != ledger.TermPaid {
		t.Errorf("status = %s, want PAID", term.Status)
	}
	if !term.PenaltyApplied.Equal(ledger.MustDecimal("50")) {
		t.Errorf("penalty = %s, want 50", term.PenaltyApplied)
	}
	if !entry.AmountRemaining.Equal(ledger.MustDecimal("1050")) {
		t.Errorf("remaining = %s, want 1050", entry.AmountRemaining)
	}
}

func TestSetStatus_DelinquentToPaid_PenaltyAlreadySet_NoDouble(t *testing.T) {
	// GIVEN: A Delinquent term the sweep already assessed
	// WHEN: Paying it
	// THEN: No second fee

	entry, plan, term := installmentFixture("1000", 4, ledger.NewDate(2025, time.July, 1))
	term.Status = ledger.TermDelinquent
	term.PenaltyApplied = ledger.MustDecimal("50")
	entry.AmountRemaining = ledger.MustDecimal("1050")

	ledger.SetStatus(term, plan, entry, ledger.TermPaid)

	if !entry.AmountRemaining.Equal(ledger.MustDecimal("1050")) {
		t.Errorf("remaining = %s, want unchanged 1050", entry.AmountRemaining)
	}
}

func TestSetStatus_UnpaidToPaid_NoFee(t *testing.T) {
	// Paying on time never assesses a penalty.
	entry, plan, term := installmentFixture("1000", 4, ledger.NewDate(2025, time.July, 1))

	ledger.SetStatus(term, plan, entry, ledger.TermPaid)

	if !term.PenaltyApplied.IsZero() {
		t.Errorf("penalty = %s, want 0", term.PenaltyApplied)
	}
	if !entry.AmountRemaining.Equal(ledger.MustDecimal("1000")) {
		t.Errorf("remaining = %s, want 1000", entry.AmountRemaining)
	}
}

// =============================================================================
// PREVIEW TESTS
// =============================================================================

func TestPreviews_DoNotMutate(t *testing.T) {
	// GIVEN: A Delinquent term
	// WHEN: Previewing skip penalty and delinquent fee
	// THEN: Both report 50 and nothing changes

	entry, plan, term := installmentFixture("1000", 4, ledger.NewDate(2025, time.July, 1))
	term.Status = ledger.TermDelinquent

	if got := ledger.SkipPenaltyPreview(plan); !got.Equal(ledger.MustDecimal("50")) {
		t.Errorf("skip preview = %s, want 50", got)
	}
	if got := ledger.DelinquentFeePreview(term, plan); !got.Equal(ledger.MustDecimal("50")) {
		t.Errorf("delinquent fee preview = %s, want 50", got)
	}
	if !term.PenaltyApplied.IsZero() || !entry.AmountRemaining.Equal(ledger.MustDecimal("1000")) {
		t.Error("preview mutated state")
	}
}

func TestDelinquentFeePreview_NonDelinquent_Zero(t *testing.T) {
	_, plan, term := installmentFixture("1000", 4, ledger.NewDate(2025, time.July, 1))
	if got := ledger.DelinquentFeePreview(term, plan); !got.IsZero() {
		t.Errorf("preview = %s, want 0 for non-delinquent term", got)
	}
}
