/*
schedule.go - Installment schedule generation

PURPOSE:
  Deterministically generates the ordered list of installment terms for a
  plan: due dates from a frequency rule plus an optional explicit day
  selector, and a fixed per-term amount.

DUE DATE RULES:
  First due date:
    - No explicit day: the start date itself.
    - Monthly with day D (1-28): this month's day D when start.day <= D,
      otherwise next month's day D. D never exceeds 28, so the day exists
      in every month.
    - Weekly with weekday W: the same-or-next occurrence of W from the
      start date.
  Subsequent due dates:
    - Monthly with day D: advance one month, land on D.
    - Monthly without: add one clamped calendar month.
    - Weekly with W: advance a full week, then same-or-next W - exactly
      7-day spacing once aligned.
    - Weekly without: add 7 days.
  Invalid explicit-day values silently fall back to the no-day rules.

AMOUNT:
  amountPerTerm = round(total / termCount, 2, half-up). The rounding
  remainder is not redistributed; the drift is bounded by termCount cents.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanSpec is the input to schedule generation.
type PlanSpec struct {
	StartDate    time.Time
	Frequency    Frequency
	FrequencyDay string
	TermCount    int
	Total        decimal.Decimal
}

// ScheduledTerm is one generated (termNumber, dueDate) pair.
type ScheduledTerm struct {
	Number  int
	DueDate time.Time
}

// AmountPerTerm computes the fixed per-term amount.
func AmountPerTerm(total decimal.Decimal, termCount int) decimal.Decimal {
	return RoundCents(total.Div(decimal.NewFromInt(int64(termCount))))
}

// GenerateTerms produces the ordered term schedule for a plan.
func GenerateTerms(spec PlanSpec) ([]ScheduledTerm, error) {
	if err := ValidatePlanSpec(spec); err != nil {
		return nil, err
	}

	start := Day(spec.StartDate)
	terms := make([]ScheduledTerm, 0, spec.TermCount)

	due := FirstDueDate(start, spec.Frequency, spec.FrequencyDay)
	for i := 1; i <= spec.TermCount; i++ {
		terms = append(terms, ScheduledTerm{Number: i, DueDate: due})
		switch spec.Frequency {
		case Weekly:
			due = nextWeeklyDate(due, spec.FrequencyDay)
		case Monthly:
			due = nextMonthlyDate(due, spec.FrequencyDay)
		}
	}
	return terms, nil
}

// ValidatePlanSpec rejects plan creation on missing start date, missing
// frequency, or a non-positive term count.
func ValidatePlanSpec(spec PlanSpec) error {
	if spec.StartDate.IsZero() {
		return validationf("installment start date is required")
	}
	if spec.Frequency != Weekly && spec.Frequency != Monthly {
		return validationf("payment frequency is required")
	}
	if spec.TermCount <= 0 {
		return validationf("payment terms must be greater than 0")
	}
	return nil
}

// FirstDueDate computes the first term's due date.
func FirstDueDate(start time.Time, freq Frequency, freqDay string) time.Time {
	if freqDay == "" {
		return start
	}

	switch freq {
	case Monthly:
		if d, ok := ParseDayOfMonth(freqDay); ok {
			if start.Day() <= d {
				return WithDayOfMonth(start, d)
			}
			next := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
			return WithDayOfMonth(next, d)
		}
	case Weekly:
		if w, ok := ParseWeekdayName(freqDay); ok {
			return SameOrNextWeekday(start, w)
		}
	}
	return start
}

func nextWeeklyDate(cur time.Time, freqDay string) time.Time {
	next := cur.AddDate(0, 0, 7)
	if w, ok := ParseWeekdayName(freqDay); ok {
		// Already aligned after the first term, so this is a no-op then,
		// but it guarantees alignment from an unaligned first due date.
		return SameOrNextWeekday(next, w)
	}
	return next
}

func nextMonthlyDate(cur time.Time, freqDay string) time.Time {
	if d, ok := ParseDayOfMonth(freqDay); ok {
		next := time.Date(cur.Year(), cur.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		return WithDayOfMonth(next, d)
	}
	return AddMonthsClamped(cur, 1)
}
