package billing_test

import (
	"testing"
	"time"

	"github.com/centavo/ledger-engine/billing"
	"github.com/centavo/ledger-engine/ledger"
)

func policy(dueDay, cutoffDays int) ledger.CardPolicy {
	return ledger.CardPolicy{DueDay: dueDay, CutoffDaysBeforeDue: cutoffDays}
}

// =============================================================================
// CUTOFF AND DUE DATES
// =============================================================================

func TestCutoffDate_DueFifteenthWithFiveDayOffset(t *testing.T) {
	// GIVEN: A card due on the 15th with a 5-day cutoff offset
	p := policy(15, 5)
	ref := ledger.NewDate(2025, time.March, 20)

	// WHEN: The cutoff for March is computed
	cutoff, ok := billing.CutoffDate(p, ref)

	// THEN: Charges from March 10 onward roll to April's bill
	if !ok {
		t.Fatal("expected a cutoff for a configured policy")
	}
	if want := ledger.NewDate(2025, time.March, 10); !cutoff.Equal(want) {
		t.Errorf("cutoff = %s, want %s", cutoff, want)
	}
}

func TestCutoffDate_NoOffset(t *testing.T) {
	// GIVEN: A card due on the 15th with no cutoff offset
	p := policy(15, 0)

	// WHEN: The cutoff is computed
	cutoff, ok := billing.CutoffDate(p, ledger.NewDate(2025, time.March, 1))

	// THEN: The cutoff coincides with the due day
	if !ok {
		t.Fatal("expected a cutoff")
	}
	if want := ledger.NewDate(2025, time.March, 15); !cutoff.Equal(want) {
		t.Errorf("cutoff = %s, want %s", cutoff, want)
	}
}

func TestCutoffDate_UnconfiguredPolicy(t *testing.T) {
	// GIVEN: A card with no due day set
	p := policy(0, 5)

	// WHEN: Any cycle computation runs
	_, ok := billing.CutoffDate(p, ledger.NewDate(2025, time.March, 1))

	// THEN: There is no cutoff and no error; the account is cycle-less
	if ok {
		t.Error("unconfigured policy must not produce a cutoff")
	}
	if _, ok := billing.PaymentDueDate(p, ledger.NewDate(2025, time.March, 1)); ok {
		t.Error("unconfigured policy must not produce a due date")
	}
	if billing.InNextCycle(p, ledger.NewDate(2025, time.March, 31), ledger.NewDate(2025, time.March, 31)) {
		t.Error("unconfigured policy never rolls charges forward")
	}
}

func TestPaymentDueDate_SameMonth(t *testing.T) {
	p := policy(15, 5)

	due, ok := billing.PaymentDueDate(p, ledger.NewDate(2025, time.March, 5))
	if !ok {
		t.Fatal("expected a due date")
	}
	if want := ledger.NewDate(2025, time.March, 15); !due.Equal(want) {
		t.Errorf("due = %s, want %s", due, want)
	}
}

func TestPaymentDueDate_ClampsInShortMonths(t *testing.T) {
	// GIVEN: A card due on the 31st
	p := policy(31, 0)

	// WHEN: The due date is computed for February
	cases := []struct {
		ref  ledger.Date
		want ledger.Date
	}{
		{ledger.NewDate(2025, time.February, 1), ledger.NewDate(2025, time.February, 28)},
		{ledger.NewDate(2024, time.February, 1), ledger.NewDate(2024, time.February, 29)},
		{ledger.NewDate(2025, time.April, 1), ledger.NewDate(2025, time.April, 30)},
	}

	// THEN: The due day clamps to the month's last day
	for _, c := range cases {
		due, ok := billing.PaymentDueDate(p, c.ref)
		if !ok {
			t.Fatalf("expected a due date for %s", c.ref)
		}
		if !due.Equal(c.want) {
			t.Errorf("due for %s = %s, want %s", c.ref, due, c.want)
		}
	}
}

func TestPaymentDueDate_NeverEarlierAsCutoffGrows(t *testing.T) {
	// GIVEN: A fixed due day and an ever-larger cutoff offset
	ref := ledger.NewDate(2025, time.March, 1)
	prev, _ := billing.PaymentDueDate(policy(15, 0), ref)

	// WHEN/THEN: Growing the offset never moves the due date earlier
	for cutoff := 1; cutoff <= 20; cutoff++ {
		due, ok := billing.PaymentDueDate(policy(15, cutoff), ref)
		if !ok {
			t.Fatalf("expected a due date at cutoff %d", cutoff)
		}
		if due.Before(prev) {
			t.Fatalf("cutoff %d moved due date earlier: %s < %s", cutoff, due, prev)
		}
		prev = due
	}
}

// =============================================================================
// NEXT-CYCLE CLASSIFICATION
// =============================================================================

func TestInNextCycle_CutoffIsInclusive(t *testing.T) {
	// GIVEN: Cutoff on March 10 (due 15th, offset 5)
	p := policy(15, 5)

	cases := []struct {
		txDate ledger.Date
		want   bool
	}{
		{ledger.NewDate(2025, time.March, 9), false},  // day before cutoff
		{ledger.NewDate(2025, time.March, 10), true},  // on the cutoff itself
		{ledger.NewDate(2025, time.March, 12), true},  // after cutoff
		{ledger.NewDate(2025, time.March, 5), false},  // well before
		{ledger.NewDate(2025, time.March, 31), true},  // month end
	}

	for _, c := range cases {
		got := billing.InNextCycle(p, c.txDate, c.txDate)
		if got != c.want {
			t.Errorf("InNextCycle(%s) = %v, want %v", c.txDate, got, c.want)
		}
	}
}

// =============================================================================
// CYCLE WINDOW
// =============================================================================

func TestCycleWindow_WithOffset(t *testing.T) {
	// GIVEN: Due on the 15th with a 5-day offset, statement due March 15
	p := policy(15, 5)

	// WHEN: The window paying on that date is computed
	window, ok := billing.CycleWindow(p, ledger.NewDate(2025, time.March, 15))

	// THEN: It runs from the day after February's cutoff through March 10
	if !ok {
		t.Fatal("expected a window")
	}
	if want := ledger.NewDate(2025, time.February, 11); !window.Start.Equal(want) {
		t.Errorf("start = %s, want %s", window.Start, want)
	}
	if want := ledger.NewDate(2025, time.March, 10); !window.End.Equal(want) {
		t.Errorf("end = %s, want %s", window.End, want)
	}
}

func TestCycleWindow_NoOffset(t *testing.T) {
	p := policy(15, 0)

	window, ok := billing.CycleWindow(p, ledger.NewDate(2025, time.March, 15))
	if !ok {
		t.Fatal("expected a window")
	}
	if want := ledger.NewDate(2025, time.February, 16); !window.Start.Equal(want) {
		t.Errorf("start = %s, want %s", window.Start, want)
	}
	if want := ledger.NewDate(2025, time.March, 15); !window.End.Equal(want) {
		t.Errorf("end = %s, want %s", window.End, want)
	}
}

func TestCycleWindow_Unconfigured(t *testing.T) {
	if _, ok := billing.CycleWindow(policy(0, 0), ledger.NewDate(2025, time.March, 15)); ok {
		t.Error("unconfigured policy must not produce a window")
	}
}

func TestCycleWindow_CoversEveryDayExactlyOnce(t *testing.T) {
	// GIVEN: Consecutive statements of the same card
	p := policy(15, 5)
	feb, _ := billing.CycleWindow(p, ledger.NewDate(2025, time.February, 15))
	mar, _ := billing.CycleWindow(p, ledger.NewDate(2025, time.March, 15))

	// THEN: The windows tile with no gap and no overlap
	if !mar.Start.Equal(feb.End.AddDays(1)) {
		t.Errorf("windows should tile: feb ends %s, mar starts %s", feb.End, mar.Start)
	}
}
