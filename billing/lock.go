/*
lock.go - Billing-cycle lock

PURPOSE:
  Freezes a transaction's computed payment month so later policy edits
  never retroactively rewrite history. The lock is a one-time stamp
  (first-of-month date + timestamp) written at creation time, and
  rewritten only when the manual deferral flag changes. Reads never
  recompute a locked transaction's cycle - that is the entire mechanism.

RESOLUTION ORDER:
  1. Manual deferral flag set        -> next month's bill
  2. Transaction on/after the cutoff -> next month's bill
  3. Otherwise                       -> this month's bill

BADGE RULE:
  The "next cycle" badge shows for manually deferred transactions, and
  otherwise only for LOCKED transactions whose payment month is strictly
  later than the transaction month. Unlocked transactions never show the
  badge, so the UI doesn't flip-flop as card settings change.

SEE ALSO:
  - cycle.go: The underlying date math
  - ledger/store.go: SetCycleLock contract (targeted write, serialized
    per transaction)
*/
package billing

import (
	"context"
	"time"

	"github.com/centavo/ledger-engine/ledger"
)

// =============================================================================
// RESOLUTION - Pure payment-date math
// =============================================================================

// ResolvePaymentDate computes the payment due date for a transaction under
// the current policy, honoring the manual deferral flag and the cutoff.
// ok is false when the policy has no due day.
func ResolvePaymentDate(p ledger.CardPolicy, tx *ledger.Transaction) (ledger.Date, bool) {
	switch {
	case tx.DeferredToNextCycle:
		// Manually deferred - goes to next month's bill.
		return PaymentDueDate(p, tx.Date.AddMonths(1))
	case InNextCycle(p, tx.Date, tx.Date):
		// Past cutoff - automatically goes to next month.
		return PaymentDueDate(p, tx.Date.AddMonths(1))
	default:
		return PaymentDueDate(p, tx.Date)
	}
}

// EffectivePaymentDate returns the payment date shown for a transaction.
//
// A locked transaction always answers from its stamp: the policy's due day
// clamped into the locked month. Unlocked transactions fall back to live
// resolution (legacy rows created before locking existed).
//
// ok is false when the policy has no due day; callers display the
// transaction date itself in that case.
func EffectivePaymentDate(p ledger.CardPolicy, tx *ledger.Transaction) (ledger.Date, bool) {
	if !p.Configured() {
		return ledger.Date{}, false
	}

	if tx.Locked() {
		return ledger.ClampDay(tx.CycleMonth.Year(), tx.CycleMonth.Month(), p.DueDay), true
	}

	return ResolvePaymentDate(p, tx)
}

// DeferredBadgeVisible reports whether the "next cycle" badge shows for a
// transaction. Manual deferral always shows it. Otherwise only a locked
// transaction qualifies, and only when its payment month is strictly later
// than the transaction's own month.
func DeferredBadgeVisible(p ledger.CardPolicy, tx *ledger.Transaction) bool {
	if tx.DeferredToNextCycle {
		return true
	}
	if !p.Configured() {
		return false
	}

	if tx.Locked() {
		// Year/month comparison only: same month = current cycle, later
		// month = next cycle or beyond.
		return tx.CycleMonth.MonthAfter(tx.Date)
	}

	// Unlocked: no badge, to avoid confusion when card settings change.
	return false
}

// =============================================================================
// LOCKER - Persists the stamp
// =============================================================================

// CycleStore is the slice of the store the Locker needs.
type CycleStore interface {
	SetCycleLock(ctx context.Context, id ledger.TransactionID, month ledger.Date, lockedAt time.Time) error
}

// Locker stamps billing cycles onto persisted transactions.
type Locker struct {
	Store CycleStore
}

func NewLocker(store CycleStore) *Locker {
	return &Locker{Store: store}
}

// Lock computes and persists the transaction's billing-cycle stamp.
//
// No-ops (without error) when the account is not a credit card or the
// policy has no due day. On success the passed transaction is updated in
// place to reflect the new stamp.
//
// Called once at creation, and again only when the manual deferral flag
// changes - never on reads.
func (l *Locker) Lock(ctx context.Context, account *ledger.Account, tx *ledger.Transaction, now time.Time) error {
	if !account.IsCreditCard() {
		return nil
	}

	payment, ok := ResolvePaymentDate(account.Policy(), tx)
	if !ok {
		return nil // policy incomplete: expected steady state
	}

	month := payment.FirstOfMonth()
	if err := l.Store.SetCycleLock(ctx, tx.ID, month, now); err != nil {
		return err
	}

	tx.CycleMonth = &month
	tx.CycleLockedAt = &now
	return nil
}
