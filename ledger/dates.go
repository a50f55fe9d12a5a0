package ledger

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CALENDAR ARITHMETIC - Day-granularity, UTC
// =============================================================================

// Day truncates a time to midnight UTC. All due-date comparisons happen at
// day granularity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a day-granularity date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SameOrNextWeekday returns the next date >= t that falls on w. If t itself
// falls on w, t counts.
func SameOrNextWeekday(t time.Time, w time.Weekday) time.Time {
	delta := (int(w) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, delta)
}

// AddMonthsClamped advances by n calendar months, clamping the day to the
// last day of the target month (Jan 31 + 1 month = Feb 28/29). This differs
// from time.AddDate, which normalizes overflow into the following month.
func AddMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := daysInMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// WithDayOfMonth lands on day d of t's month. Callers guarantee d <= 28 so
// the result is valid in every month.
func WithDayOfMonth(t time.Time, d int) time.Time {
	return time.Date(t.Year(), t.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// FREQUENCY-DAY PARSING
// =============================================================================

// ParseWeekdayName parses a weekday selector ("monday", "FRIDAY"). The bool
// result is false for anything that is not a weekday name; callers fall back
// to plain spacing rather than erroring.
func ParseWeekdayName(s string) (time.Weekday, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUNDAY":
		return time.Sunday, true
	case "MONDAY":
		return time.Monday, true
	case "TUESDAY":
		return time.Tuesday, true
	case "WEDNESDAY":
		return time.Wednesday, true
	case "THURSDAY":
		return time.Thursday, true
	case "FRIDAY":
		return time.Friday, true
	case "SATURDAY":
		return time.Saturday, true
	}
	return 0, false
}

// ParseDayOfMonth parses a day-of-month selector. Only 1..28 is accepted so
// that the day exists in every month; anything else reports false and the
// caller falls back to plain spacing.
func ParseDayOfMonth(s string) (int, bool) {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || d < 1 || d > 28 {
		return 0, false
	}
	return d, true
}
