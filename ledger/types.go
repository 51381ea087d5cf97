/*
Package ledger provides the core types of the billing engine.

PURPOSE:
  This package contains the plain records the engine computes over:
  accounts with an optional credit-card billing policy, transactions with
  their billing-cycle state, and the typed metadata sub-records that ride
  on a transaction (duplicate suggestion, installment tag).

KEY CONCEPTS IN THIS FILE (types.go):
  - Account/CardPolicy: Who owns the billing policy (due day, cutoff offset)
  - Transaction:        A ledger entry with cycle state and metadata
  - DuplicateSuggestion: Pending-vs-posted match candidate
  - InstallmentTag:     Membership in an installment group

DESIGN PRINCIPLES:
  1. Precision: Amounts are decimal.Decimal, never float64
  2. Explicitness: Engine operations take policy and transaction data as
     parameters; no ambient session or account lookup
  3. Typed metadata: The free-form metadata bag of the source system is
     modeled as optional typed sub-records, validated where they are read

SIGN CONVENTION:
  Positive amounts are outflows (charges), negative amounts are inflows.
  The HTTP layer normalizes the user-facing inflow/outflow choice into a
  sign before anything else sees the amount.

SEE ALSO:
  - date.go: Date and calendar clamping
  - errors.go: Error taxonomy
  - store.go: Persistence interface over these records
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type TransactionID string

// =============================================================================
// ACCOUNT - Owns the billing policy
// =============================================================================

type AccountType string

const (
	AccountCreditCard AccountType = "credit_card"
	AccountDepository AccountType = "depository"
)

// CardPolicy is a credit card's billing configuration. The engine treats it
// as immutable per calculation call.
//
// Zero values mean "not configured": DueDay 0 disables all cycle math for
// the account, CutoffDaysBeforeDue 0 means the statement closes on the due
// day itself.
type CardPolicy struct {
	// DueDay is the day of month (1-31) the payment is due. Clamped to the
	// actual last day of short months before use.
	DueDay int

	// CutoffDaysBeforeDue is how many days before the due date charges
	// start rolling to the next month's bill.
	CutoffDaysBeforeDue int
}

// Configured reports whether the policy has a due day set. Without one,
// every cycle computation is a no-op.
func (p CardPolicy) Configured() bool { return p.DueDay >= 1 }

// Account is a ledger account. Card holds the billing policy for credit
// card accounts and is nil otherwise.
type Account struct {
	ID        AccountID
	Name      string
	Type      AccountType
	Currency  string
	Card      *CardPolicy
	CreatedAt time.Time
}

// IsCreditCard reports whether billing-cycle operations apply to this
// account at all.
func (a *Account) IsCreditCard() bool {
	return a != nil && a.Type == AccountCreditCard
}

// Policy returns the account's card policy, or the unconfigured zero policy
// for non-card accounts.
func (a *Account) Policy() CardPolicy {
	if a == nil || a.Card == nil {
		return CardPolicy{}
	}
	return *a.Card
}

// =============================================================================
// TRANSACTION - Ledger entry with billing-cycle state
// =============================================================================

// Transaction is a single ledger entry.
//
// CycleMonth and CycleLockedAt are the billing-cycle lock: once CycleMonth
// is set it records the payment month computed under the policy at lock
// time, and later policy edits never change it. It is rewritten only by an
// explicit relock when DeferredToNextCycle changes.
type Transaction struct {
	ID        TransactionID
	AccountID AccountID
	Date      Date
	Amount    decimal.Decimal // positive = outflow, negative = inflow
	Currency  string
	Name      string
	Notes     string
	Excluded  bool

	// Manual user override: force this charge onto next month's bill
	// regardless of cutoff math.
	DeferredToNextCycle bool

	// Billing-cycle lock. CycleMonth is always a first-of-month date.
	CycleMonth    *Date
	CycleLockedAt *time.Time

	// Optional typed metadata.
	Suggestion  *DuplicateSuggestion
	Installment *InstallmentTag

	CreatedAt time.Time
}

// Locked reports whether the billing cycle has been stamped.
func (t *Transaction) Locked() bool {
	return t != nil && t.CycleMonth != nil
}

// =============================================================================
// DUPLICATE SUGGESTION - Pending-vs-posted match candidate
// =============================================================================

// Confidence is the matcher's confidence in a duplicate suggestion. It is
// informational only and drives UI emphasis, not control flow.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// OrDefault returns the confidence, defaulting to medium when absent.
func (c Confidence) OrDefault() Confidence {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return c
	default:
		return ConfidenceMedium
	}
}

// DuplicateSuggestion marks a pending transaction as a likely duplicate of
// an already-posted entry. At most one suggestion exists per transaction.
//
// Lifecycle: attached by an external matcher; either dismissed in place
// (Dismissed = true, terminal) or resolved by merging, which deletes the
// pending transaction entirely.
type DuplicateSuggestion struct {
	EntryID      TransactionID   `json:"entry_id"`
	Reason       string          `json:"reason"`
	Confidence   Confidence      `json:"confidence"`
	PostedAmount decimal.Decimal `json:"posted_amount"`
	Dismissed    bool            `json:"dismissed"`
}

// =============================================================================
// INSTALLMENT TAG - Membership in an installment group
// =============================================================================

// InstallmentMode selects how a principal maps onto the generated lines.
type InstallmentMode string

const (
	// ModeDivide splits the principal across the lines, exact to the cent.
	ModeDivide InstallmentMode = "divide"
	// ModeReplicate repeats the full principal on every line (recurring
	// charge templates rather than one divided expense).
	ModeReplicate InstallmentMode = "replicate"
)

// InstallmentTag records a transaction's place in an installment group so
// the lines can be identified and grouped later.
type InstallmentTag struct {
	GroupID string          `json:"group_id"`
	Index   int             `json:"index"` // 1-based
	Total   int             `json:"total"`
	Mode    InstallmentMode `json:"mode"`
}
