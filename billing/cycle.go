/*
Package billing implements credit-card billing-cycle math and the cycle lock.

PURPOSE:
  Given a card policy (due day, cutoff offset) and dates, compute cutoff
  dates, payment due dates, cycle windows, and whether a charge rolls to
  the next statement. Everything in cycle.go is a pure function: same
  inputs, same outputs, no I/O.

KEY CONCEPTS:
  - Cutoff date:  Last date a charge posts to the CURRENT statement.
                  Charges on or after it roll to next month's bill.
  - Due date:     The day of month the statement is paid, clamped to
                  short months (due day 31 in February pays on Feb 28/29).
  - Cycle window: The [start, end] day range whose charges pay on a given
                  due date.

WHY TWO KNOBS:
  Due day and cutoff offset are independently configurable so an issuer's
  grace window (charges after cutoff post to the next bill) is modeled
  without conflating the two concepts. All month-end edge cases funnel
  through ledger.ClampDay, so day 29-31 policies never misbehave on short
  months.

MISSING POLICY:
  A card with no due day is an expected steady state. Computations report
  it as ok=false and callers treat the account as cycle-less; it is never
  an error.

SEE ALSO:
  - lock.go: One-time freeze of a transaction's computed payment month
  - ledger/date.go: ClampDay and month arithmetic
*/
package billing

import (
	"github.com/centavo/ledger-engine/ledger"
)

// =============================================================================
// CYCLE CALCULATOR - Pure date math over a policy
// =============================================================================

// CutoffDate returns the cutoff date for the month of ref: the date on or
// after which charges are included in next month's bill. ok is false when
// the policy has no due day.
func CutoffDate(p ledger.CardPolicy, ref ledger.Date) (ledger.Date, bool) {
	if !p.Configured() {
		return ledger.Date{}, false
	}

	dueInMonth := ledger.ClampDay(ref.Year(), ref.Month(), p.DueDay)
	if p.CutoffDaysBeforeDue > 0 {
		return dueInMonth.AddDays(-p.CutoffDaysBeforeDue), true
	}
	return dueInMonth, true
}

// PaymentDueDate returns the due date on which the charges of ref's cycle
// are paid.
//
// If the cutoff falls on or before this month's due day, payment lands in
// the same month. Otherwise the cutoff spilled past the due date and
// payment lands on next month's (clamped) due day.
func PaymentDueDate(p ledger.CardPolicy, ref ledger.Date) (ledger.Date, bool) {
	cutoff, ok := CutoffDate(p, ref)
	if !ok {
		return ledger.Date{}, false
	}

	dueInMonth := ledger.ClampDay(ref.Year(), ref.Month(), p.DueDay)
	if cutoff.BeforeOrEqual(dueInMonth) {
		return dueInMonth, true
	}

	next := ref.AddMonths(1)
	return ledger.ClampDay(next.Year(), next.Month(), p.DueDay), true
}

// InNextCycle reports whether a transaction dated txDate rolls to the next
// cycle, judged against the cutoff of ref's month. False when the policy
// has no due day.
func InNextCycle(p ledger.CardPolicy, txDate, ref ledger.Date) bool {
	cutoff, ok := CutoffDate(p, ref)
	if !ok {
		return false
	}
	return txDate.AfterOrEqual(cutoff)
}

// CycleWindow returns the [start, end] period whose charges pay on dueDate.
//
// The window ends at the due date shifted back by the cutoff offset (or at
// the due date itself without one) and starts the day after the previous
// month's cutoff. If the previous cutoff can't be computed, the window
// falls back to starting on the first of the due date's month.
func CycleWindow(p ledger.CardPolicy, dueDate ledger.Date) (ledger.Period, bool) {
	if !p.Configured() {
		return ledger.Period{}, false
	}

	end := dueDate
	if p.CutoffDaysBeforeDue > 0 {
		end = dueDate.AddDays(-p.CutoffDaysBeforeDue)
	}

	start := dueDate.FirstOfMonth()
	if prevCutoff, ok := CutoffDate(p, dueDate.AddMonths(-1)); ok {
		start = prevCutoff.AddDays(1)
	}

	return ledger.Period{Start: start, End: end}, true
}
