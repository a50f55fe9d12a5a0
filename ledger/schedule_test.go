package ledger_test

import (
	"testing"
	"time"

	"github.com/warp/loan-ledger/ledger"
)

// =============================================================================
// SCHEDULE GENERATION TESTS
// =============================================================================

func weeklySpec(start time.Time, day string, terms int, total string) ledger.PlanSpec {
	return ledger.PlanSpec{
		StartDate:    start,
		Frequency:    ledger.Weekly,
		FrequencyDay: day,
		TermCount:    terms,
		Total:        ledger.MustDecimal(total),
	}
}

func monthlySpec(start time.Time, day string, terms int, total string) ledger.PlanSpec {
	return ledger.PlanSpec{
		StartDate:    start,
		Frequency:    ledger.Monthly,
		FrequencyDay: day,
		TermCount:    terms,
		Total:        ledger.MustDecimal(total),
	}
}

func TestGenerateTerms_WeeklyNoDay_SevenDaySpacing(t *testing.T) {
	// GIVEN: A weekly plan with no explicit weekday, starting on a Wednesday
	// WHEN: Generating 4 terms
	// THEN: Due dates are the start date and exactly +7d, +14d, +21d

	start := ledger.NewDate(2025, time.June, 4) // Wednesday
	terms, err := ledger.GenerateTerms(weeklySpec(start, "", 4, "400"))
	if err != nil {
		t.Fatalf("GenerateTerms: %v", err)
	}
	if len(terms) != 4 {
		t.Fatalf("expected 4 terms, got %d", len(terms))
	}
	for i, term := range terms {
		want := start.AddDate(0, 0, 7*i)
		if !term.DueDate.Equal(want) {
			t.Errorf("term %d due %v, want %v", term.Number, term.DueDate, want)
		}
		if term.Number != i+1 {
			t.Errorf("term numbering: got %d, want %d", term.Number, i+1)
		}
	}
}

func TestGenerateTerms_WeeklyWithWeekday_AlignsThenSpacesSevenDays(t *testing.T) {
	// GIVEN: A weekly plan starting Wednesday 2025-06-04 with weekday FRIDAY
	// WHEN: Generating 3 terms
	// THEN: First due is the same-week Friday (June 6), then exact 7-day steps

	start := ledger.NewDate(2025, time.June, 4)
	terms, err := ledger.GenerateTerms(weeklySpec(start, "FRIDAY", 3, "300"))
	if err != nil {
		t.Fatalf("GenerateTerms: %v", err)
	}

	want := []time.Time{
		ledger.NewDate(2025, time.June, 6),
		ledger.NewDate(2025, time.June, 13),
		ledger.NewDate(2025, time.June, 20),
	}
	for i, term := range terms {
		if !term.DueDate.Equal(want[i]) {
			t.Errorf("term %d due %v, want %v", term.Number, term.DueDate, want[i])
		}
	}
}

func TestGenerateTerms_WeeklyStartOnSelectedWeekday_StartCounts(t *testing.T) {
	// GIVEN: A weekly plan whose start date already falls on the selected weekday
	// WHEN: Generating terms
	// THEN: The start date itself is the first due date

	start := ledger.NewDate(2025, time.June, 6) // Friday
	terms, err := ledger.GenerateTerms(weeklySpec(start, "friday", 2, "200"))
	if err != nil {
		t.Fatalf("GenerateTerms: %v", err)
	}
	if !terms[0].DueDate.Equal(start) {
		t.Errorf("first due %v, want start date %v", terms[0].DueDate, start)
	}
}

func TestGenerateTerms_MonthlyWithDay_StartBeforeDay(t *testing.T) {
	// GIVEN: A monthly plan starting on the 10th with day selector 15
	// WHEN: Generating 3 terms
	// THEN: First due is this month's 15th, then the 15th of each following month

	start := ledger.NewDate(2025, time.March, 10)
	terms, err := ledger.GenerateTerms(monthlySpec(start, "15", 3, "3000"))
	if err != nil {
		t.Fatalf("GenerateTerms: %v", err)
	}

	want := []time.Time{
		ledger.NewDate(2025, time.March, 15),
		ledger.NewDate(2025, time.April, 15),
		ledger.NewDate(2025, time.May, 15),
	}
	for i, term := range terms {
		if !term.DueDate.Equal(want[i]) {
			t.Errorf("term %d due %v, want %v", term.Number, term.DueDate, want[i])
		}
	}
}

func TestGenerateTerms_MonthlyWithDay_StartAfterDay_SkipsToNextMonth(t *testing.T) {
	// GIVEN: A monthly plan starting on the 20th with day selector 15
	// WHEN: Generating terms
	// THEN: First due is NEXT month's 15th

	start := ledger.NewDate(2025, time.March, 20)
	terms, err := ledger.GenerateTerms(monthlySpec(start, "15", 2, "2000"))
	if err != nil {
		t.Fatalf("GenerateTerms: %v", err)
	}
	if want := ledger.NewDate(2025, time.April, 15); !terms[0].DueDate.Equal(want) {
		t.Errorf("first due %v, want %v", terms[0].DueDate, want)
	}
	if want := ledger.NewDate(2025, time.May, 15); !terms[1].DueDate.Equal(want) {
		t.Errorf("second due %v, want %v", terms[1].DueDate, want)
	}
}

func TestGenerateTerms_MonthlyNoDay_ClampsAtMonthEnd(t *testing.T) {
	// GIVEN: A monthly plan with no day selector starting January 31
	// WHEN: Generating 3 terms
	// THEN: Due dates clamp to the last day of short months instead of
	//       overflowing into the next month

	start := ledger.NewDate(2025, time.January, 31)
	terms, err := ledger.GenerateTerms(monthlySpec(start, "", 3, "3000"))
	if err != nil {
		t.Fatalf("GenerateTerms: %v", err)
	}

	want := []time.Time{
		ledger.NewDate(2025, time.January, 31),
		ledger.NewDate(2025, time.February, 28),
		ledger.NewDate(2025, time.March, 28),
	}
	for i, term := range terms {
		if !term.DueDate.Equal(want[i]) {
			t.Errorf("term %d due %v, want %v", term.Number, term.DueDate, want[i])
		}
	}
}

func TestGenerateTerms_InvalidDaySelector_FallsBackSilently(t *testing.T) {
	// GIVEN: A monthly plan with day selector "31" (outside 1..28)
	// WHEN: Generating terms
	// THEN: The selector is ignored; the plan behaves as if none was given

	start := ledger.NewDate(2025, time.April, 3)
	terms, err := ledger.GenerateTerms(monthlySpec(start, "31", 2, "2000"))
	if err != nil {
		t.Fatalf("GenerateTerms: %v", err)
	}
	if !terms[0].DueDate.Equal(start) {
		t.Errorf("first due %v, want start date %v", terms[0].DueDate, start)
	}
	if want := ledger.NewDate(2025, time.May, 3); !terms[1].DueDate.Equal(want) {
		t.Errorf("second due %v, want %v", terms[1].DueDate, want)
	}
}

func TestGenerateTerms_Validation(t *testing.T) {
	// GIVEN: Plan specs with missing start, missing frequency, zero terms
	// WHEN: Generating
	// THEN: Each is rejected with a validation error

	base := monthlySpec(ledger.NewDate(2025, time.May, 1), "", 4, "1000")

	missingStart := base
	missingStart.StartDate = time.Time{}
	if _, err := ledger.GenerateTerms(missingStart); !ledger.IsValidation(err) {
		t.Errorf("missing start: got %v, want validation error", err)
	}

	missingFreq := base
	missingFreq.Frequency = ""
	if _, err := ledger.GenerateTerms(missingFreq); !ledger.IsValidation(err) {
		t.Errorf("missing frequency: got %v, want validation error", err)
	}

	zeroTerms := base
	zeroTerms.TermCount = 0
	if _, err := ledger.GenerateTerms(zeroTerms); !ledger.IsValidation(err) {
		t.Errorf("zero terms: got %v, want validation error", err)
	}
}

// =============================================================================
// AMOUNT-PER-TERM TESTS
// =============================================================================

func TestAmountPerTerm_RoundsHalfUp(t *testing.T) {
	// GIVEN: 1000 split over 3 terms
	// WHEN: Computing the per-term amount
	// THEN: 333.33 (1000/3 rounded half-up to cents)

	got := ledger.AmountPerTerm(ledger.MustDecimal("1000"), 3)
	if !got.Equal(ledger.MustDecimal("333.33")) {
		t.Errorf("amount per term = %s, want 333.33", got)
	}
}

func TestAmountPerTerm_DriftBoundedByTermCountCents(t *testing.T) {
	// GIVEN: A total that does not divide evenly
	// WHEN: Summing termCount * amountPerTerm
	// THEN: |sum - total| is below termCount cents (remainder not redistributed)

	total := ledger.MustDecimal("1000")
	terms := 7
	per := ledger.AmountPerTerm(total, terms)
	sum := per.Mul(ledger.MustDecimal("7"))

	drift := sum.Sub(total).Abs()
	bound := ledger.MustDecimal("0.07")
	if drift.GreaterThan(bound) {
		t.Errorf("drift %s exceeds bound %s", drift, bound)
	}
}

func TestAmountPerTerm_ExactSplit(t *testing.T) {
	// 1000 over 4 terms is the canonical clean split.
	got := ledger.AmountPerTerm(ledger.MustDecimal("1000"), 4)
	if !got.Equal(ledger.MustDecimal("250")) {
		t.Errorf("amount per term = %s, want 250", got)
	}
}
