package installment_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centavo/ledger-engine/installment"
	"github.com/centavo/ledger-engine/ledger"
)

func jan15() ledger.Date { return ledger.NewDate(2025, time.January, 15) }

// =============================================================================
// DIVIDE MODE - Exact cents
// =============================================================================

func TestSplit_DivideSumsBackExactly(t *testing.T) {
	// GIVEN: Assorted principals, positive and negative
	// WHEN: Each is divided into every allowed count
	// THEN: The lines ALWAYS sum back to the principal, to the cent

	principals := []string{
		"100.00", "-100.00", "0.01", "0.02", "33.33", "999.99",
		"1250.00", "7.77", "-0.05", "0.00",
	}

	for _, raw := range principals {
		principal := decimal.RequireFromString(raw)
		for count := 1; count <= installment.MaxCount; count++ {
			plan, err := installment.Split(principal, count, ledger.ModeDivide, jan15(), "Item")
			if err != nil {
				t.Fatalf("Split(%s, %d): %v", raw, count, err)
			}
			if len(plan.Lines) != count {
				t.Fatalf("Split(%s, %d) produced %d lines", raw, count, len(plan.Lines))
			}
			if !plan.Total().Equal(principal) {
				t.Errorf("Split(%s, %d) sums to %s", raw, count, plan.Total())
			}
		}
	}
}

func TestSplit_RemainderGoesToFirstLines(t *testing.T) {
	// GIVEN: 100.00 over 3 lines (10000 cents = 3*3333 + 1)
	plan, err := installment.Split(decimal.RequireFromString("100.00"), 3, ledger.ModeDivide, jan15(), "Item")
	if err != nil {
		t.Fatal(err)
	}

	// THEN: The first line carries the extra cent
	want := []string{"33.34", "33.33", "33.33"}
	for i, line := range plan.Lines {
		if line.Amount.String() != want[i] {
			t.Errorf("line %d = %s, want %s", i+1, line.Amount, want[i])
		}
	}
}

func TestSplit_NegativePrincipalKeepsSign(t *testing.T) {
	// A refund split stays a refund on every line.
	plan, err := installment.Split(decimal.RequireFromString("-100.00"), 3, ledger.ModeDivide, jan15(), "Refund")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"-33.34", "-33.33", "-33.33"}
	for i, line := range plan.Lines {
		if line.Amount.String() != want[i] {
			t.Errorf("line %d = %s, want %s", i+1, line.Amount, want[i])
		}
	}
}

func TestSplit_TinyPrincipal(t *testing.T) {
	// 0.02 over 3: two lines of a cent, one of nothing.
	plan, err := installment.Split(decimal.RequireFromString("0.02"), 3, ledger.ModeDivide, jan15(), "Item")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"0.01", "0.01", "0"}
	for i, line := range plan.Lines {
		if line.Amount.String() != want[i] {
			t.Errorf("line %d = %s, want %s", i+1, line.Amount, want[i])
		}
	}
}

// =============================================================================
// REPLICATE MODE
// =============================================================================

func TestSplit_ReplicateRepeatsPrincipal(t *testing.T) {
	principal := decimal.RequireFromString("49.90")
	plan, err := installment.Split(principal, 4, ledger.ModeReplicate, jan15(), "Gym")
	if err != nil {
		t.Fatal(err)
	}

	for i, line := range plan.Lines {
		if !line.Amount.Equal(principal) {
			t.Errorf("line %d = %s, want %s", i+1, line.Amount, principal)
		}
	}
	if want := principal.Mul(decimal.NewFromInt(4)); !plan.Total().Equal(want) {
		t.Errorf("total = %s, want %s", plan.Total(), want)
	}
}

func TestSplit_UnknownModeDivides(t *testing.T) {
	plan, err := installment.Split(decimal.RequireFromString("90.00"), 3, ledger.InstallmentMode("weird"), jan15(), "Item")
	if err != nil {
		t.Fatal(err)
	}
	if plan.Mode != ledger.ModeDivide {
		t.Errorf("mode = %s, want divide fallback", plan.Mode)
	}
	if !plan.Total().Equal(decimal.RequireFromString("90.00")) {
		t.Errorf("total = %s", plan.Total())
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestSplit_CountAboveMaxRejected(t *testing.T) {
	plan, err := installment.Split(decimal.RequireFromString("100.00"), 13, ledger.ModeDivide, jan15(), "Item")
	if plan != nil {
		t.Error("no plan should be produced on validation failure")
	}
	if !errors.Is(err, ledger.ErrCountOutOfRange) {
		t.Fatalf("err = %v, want count range error", err)
	}

	var rangeErr *ledger.CountRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatal("expected a structured range error")
	}
	if rangeErr.Count != 13 || rangeErr.Max != installment.MaxCount {
		t.Errorf("range error = %+v", rangeErr)
	}
	if !ledger.IsValidation(err) {
		t.Error("range errors classify as validation")
	}
}

func TestSplit_CountBelowOneClampsToOne(t *testing.T) {
	for _, count := range []int{0, -3} {
		plan, err := installment.Split(decimal.RequireFromString("100.00"), count, ledger.ModeDivide, jan15(), "Item")
		if err != nil {
			t.Fatalf("Split(count=%d): %v", count, err)
		}
		if len(plan.Lines) != 1 {
			t.Fatalf("Split(count=%d) produced %d lines", count, len(plan.Lines))
		}
		if !plan.Lines[0].Amount.Equal(decimal.RequireFromString("100.00")) {
			t.Errorf("single line = %s, want the full principal", plan.Lines[0].Amount)
		}
	}
}

// =============================================================================
// DATES, LABELS, TAGS
// =============================================================================

func TestSplit_DatesClampThroughShortMonths(t *testing.T) {
	// GIVEN: A purchase on January 31
	plan, err := installment.Split(decimal.RequireFromString("300.00"), 3, ledger.ModeDivide,
		ledger.NewDate(2025, time.January, 31), "Laptop")
	if err != nil {
		t.Fatal(err)
	}

	// THEN: Each line clamps into its own month rather than rolling over
	want := []ledger.Date{
		ledger.NewDate(2025, time.January, 31),
		ledger.NewDate(2025, time.February, 28),
		ledger.NewDate(2025, time.March, 31),
	}
	for i, line := range plan.Lines {
		if !line.Date.Equal(want[i]) {
			t.Errorf("line %d date = %s, want %s", i+1, line.Date, want[i])
		}
	}
}

func TestSplit_LabelsAndTags(t *testing.T) {
	plan, err := installment.Split(decimal.RequireFromString("300.00"), 3, ledger.ModeDivide, jan15(), "Laptop")
	if err != nil {
		t.Fatal(err)
	}

	if plan.GroupID == "" {
		t.Fatal("plan must carry a group token")
	}

	for i, line := range plan.Lines {
		if want := fmt.Sprintf("Laptop (%d/3)", i+1); line.Label != want {
			t.Errorf("label = %q, want %q", line.Label, want)
		}

		tag := plan.Tag(i)
		if tag.GroupID != plan.GroupID {
			t.Errorf("line %d has a different group token", i+1)
		}
		if tag.Index != i+1 || tag.Total != 3 {
			t.Errorf("tag %d = %d/%d", i+1, tag.Index, tag.Total)
		}
		if tag.Mode != ledger.ModeDivide {
			t.Errorf("tag mode = %s", tag.Mode)
		}
	}
}

func TestSplit_DistinctPlansGetDistinctGroups(t *testing.T) {
	a, err := installment.Split(decimal.RequireFromString("100.00"), 2, ledger.ModeDivide, jan15(), "A")
	if err != nil {
		t.Fatal(err)
	}
	b, err := installment.Split(decimal.RequireFromString("100.00"), 2, ledger.ModeDivide, jan15(), "B")
	if err != nil {
		t.Fatal(err)
	}
	if a.GroupID == b.GroupID {
		t.Error("two plans must not share a group token")
	}
}
