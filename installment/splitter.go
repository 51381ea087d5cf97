/*
Package installment splits a transaction across billing periods.

PURPOSE:
  Turns one principal amount into N per-period lines that are exact in
  fixed-point cents. Two modes:

  - divide:    The principal is distributed across the lines. Integer
               cents are divided with divmod; the first `remainder` lines
               get one extra cent, so the lines ALWAYS sum back to the
               principal. No floating point, no lost penny.
  - replicate: Every line carries the full principal (recurring-charge
               templates rather than a single divided expense).

  Each line lands one month after the previous (clamped, so a purchase on
  Jan 31 bills Feb 28 next), is labeled "name (i/n)", and carries a shared
  group token plus its position for later identification.

VALIDATION:
  Counts below 1 are clamped to 1. Counts above 12 are rejected with a
  range error - that is a user-facing limit, not something to clamp
  silently. Validation happens before any line is produced, so failures
  are all-or-nothing.

SEE ALSO:
  - ledger/types.go: InstallmentTag, InstallmentMode
  - ledger/store.go: CreateEntries persists a plan's lines atomically
*/
package installment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavo/ledger-engine/ledger"
)

// MaxCount is the user-facing ceiling on installments per transaction.
const MaxCount = 12

// =============================================================================
// PLAN - The splitter's output
// =============================================================================

// Line is one period's share of the plan.
type Line struct {
	Index  int // 1-based
	Amount decimal.Decimal
	Date   ledger.Date
	Label  string
}

// Plan is an ordered set of lines sharing one group token. It is ephemeral:
// each line becomes a transaction and the plan itself is discarded.
type Plan struct {
	GroupID string
	Mode    ledger.InstallmentMode
	Lines   []Line
}

// Total returns the sum of the line amounts. In divide mode this equals
// the original principal exactly.
func (p *Plan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Lines {
		total = total.Add(line.Amount)
	}
	return total
}

// Tag returns the metadata tag for the line at i (0-based).
func (p *Plan) Tag(i int) ledger.InstallmentTag {
	return ledger.InstallmentTag{
		GroupID: p.GroupID,
		Index:   i + 1,
		Total:   len(p.Lines),
		Mode:    p.Mode,
	}
}

// =============================================================================
// SPLIT
// =============================================================================

// Split produces the installment plan for a principal.
//
// count is clamped to 1 from below and rejected above MaxCount. Any mode
// other than replicate divides. The principal keeps its sign: splitting
// -100.00 into 3 gives -33.34, -33.33, -33.33.
func Split(principal decimal.Decimal, count int, mode ledger.InstallmentMode, start ledger.Date, baseName string) (*Plan, error) {
	if count < 1 {
		count = 1
	}
	if count > MaxCount {
		return nil, &ledger.CountRangeError{Count: count, Min: 1, Max: MaxCount}
	}

	plan := &Plan{
		GroupID: uuid.NewString(),
		Mode:    mode,
		Lines:   make([]Line, 0, count),
	}
	if plan.Mode != ledger.ModeReplicate {
		plan.Mode = ledger.ModeDivide
	}

	negative := principal.IsNegative()
	cents := principal.Abs().Shift(2).IntPart()
	quotient := cents / int64(count)
	remainder := cents % int64(count)

	for i := 0; i < count; i++ {
		var amount decimal.Decimal
		if plan.Mode == ledger.ModeReplicate {
			amount = principal
		} else {
			lineCents := quotient
			if int64(i) < remainder {
				lineCents++
			}
			amount = decimal.New(lineCents, -2)
			if negative {
				amount = amount.Neg()
			}
		}

		plan.Lines = append(plan.Lines, Line{
			Index:  i + 1,
			Amount: amount,
			Date:   start.AddMonths(i),
			Label:  fmt.Sprintf("%s (%d/%d)", baseName, i+1, count),
		})
	}

	return plan, nil
}
