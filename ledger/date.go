/*
date.go - Calendar types and day-of-month clamping

PURPOSE:
  Day-granularity calendar math for the billing engine. Every date the
  engine touches (transaction dates, cutoff dates, payment due dates,
  installment dates) is a Date: a civil day with no time-of-day or
  timezone component.

KEY CONCEPTS:
  - Date:           A civil day (UTC midnight internally)
  - ClampDay:       Day-of-month clamped to the month's actual length
  - AddMonths:      Month arithmetic that clamps instead of overflowing
  - Period:         An inclusive [Start, End] day range

WHY CLAMPING MATTERS:
  Credit card policies store a due day of month (1-31). "Due on the 31st"
  in February must resolve to Feb 28 (29 in leap years), never to a
  rolled-over March date. All month-end edge cases in the engine funnel
  through ClampDay so day 29-31 policies never misbehave on short months.

SEE ALSO:
  - billing/cycle.go: Cutoff and due-date math built on these helpers
  - installment/splitter.go: Per-period dates via AddMonths
*/
package ledger

import "time"

// =============================================================================
// DATE - Civil day
// =============================================================================

// Date is a civil day. The zero value is the zero date.
type Date struct {
	Time time.Time
}

// NewDate creates a Date for the given calendar day.
// The day is taken as-is; use ClampDay when it may exceed the month length.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current day in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date {
	return Date{Time: d.normalize().AddDate(0, 0, n)}
}

// AddMonths shifts the date by n months, clamping the day to the target
// month's length. Jan 31 + 1 month is Feb 28 (29 in leap years), not Mar 3.
func (d Date) AddMonths(n int) Date {
	year, month := d.Year(), d.Month()
	total := int(month) - 1 + n
	year += total / 12
	total %= 12
	if total < 0 {
		total += 12
		year--
	}
	return ClampDay(year, time.Month(total+1), d.Day())
}

// FirstOfMonth returns the first day of the date's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// MonthAfter reports whether d's (year, month) is strictly later than
// other's. Days are ignored; this is the comparison the deferred badge uses.
func (d Date) MonthAfter(other Date) bool {
	if d.Year() != other.Year() {
		return d.Year() > other.Year()
	}
	return d.Month() > other.Month()
}

// =============================================================================
// CALENDAR MATH - Month-length clamping
// =============================================================================

// LastDayOfMonth returns the number of days in the given month (28-31,
// leap years included).
func LastDayOfMonth(year int, month time.Month) int {
	// First of the next month, minus one day.
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
}

// ClampDay returns the date for (year, month, day) with the day clamped to
// the month's last valid day. Never produces an invalid calendar date.
func ClampDay(year int, month time.Month, day int) Date {
	last := LastDayOfMonth(year, month)
	if day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// =============================================================================
// PERIOD - Inclusive day range
// =============================================================================

// Period is an inclusive [Start, End] range of days, e.g. one billing cycle.
type Period struct {
	Start Date
	End   Date
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t Date) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
