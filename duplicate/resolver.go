/*
Package duplicate resolves pending-vs-posted duplicate suggestions.

PURPOSE:
  When a bank feed posts a transaction that an earlier pending entry
  already covered, an external matcher attaches a DuplicateSuggestion to
  the pending transaction. This package owns what happens next:

    NONE -> SUGGESTED -> DISMISSED   (user: "not the same transaction")
                      -> MERGED      (user: "same" - pending entry deleted)

  DISMISSED is terminal for the suggestion; MERGED is terminal for the
  whole pending transaction, since the posted entry is canonical.

IDEMPOTENCE:
  - Dismiss twice: same end state, no error.
  - Merge twice: the pending entry no longer exists, so the second call
    fails with a not-found error. It must never silently succeed.

PRECONDITIONS:
  Dismiss requires a suggestion to be present (active or already
  dismissed). The guard is explicit rather than relying on call ordering.

SEE ALSO:
  - ledger/types.go: DuplicateSuggestion, Confidence
  - ledger/store.go: SetSuggestion / DeleteEntry contracts
*/
package duplicate

import (
	"context"
	"fmt"

	"github.com/centavo/ledger-engine/ledger"
)

// =============================================================================
// SUGGESTION STATE - Pure accessors
// =============================================================================

// HasActive reports whether the transaction carries a live (not dismissed)
// duplicate suggestion.
func HasActive(tx *ledger.Transaction) bool {
	return tx != nil && tx.Suggestion != nil && !tx.Suggestion.Dismissed
}

// SuggestionConfidence returns the suggestion's confidence, defaulting to
// medium when unset. Informational only; never drives control flow.
func SuggestionConfidence(tx *ledger.Transaction) ledger.Confidence {
	if tx == nil || tx.Suggestion == nil {
		return ledger.ConfidenceMedium
	}
	return tx.Suggestion.Confidence.OrDefault()
}

// =============================================================================
// RESOLVER - Mutations through the store
// =============================================================================

// EntryStore is the slice of the store the resolver needs.
type EntryStore interface {
	GetEntry(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error)
	DeleteEntry(ctx context.Context, id ledger.TransactionID) error
	SetSuggestion(ctx context.Context, id ledger.TransactionID, s *ledger.DuplicateSuggestion) error
}

// Resolver executes the user's verdict on a duplicate suggestion.
type Resolver struct {
	Entries EntryStore
}

func NewResolver(entries EntryStore) *Resolver {
	return &Resolver{Entries: entries}
}

// Merge resolves the suggestion by deleting the pending transaction; the
// posted counterpart is canonical and stays untouched.
//
// Fails with a not-found error when the transaction has no active
// suggestion or the posted entry can't be resolved. Because the pending
// entry is gone afterwards, retrying a successful merge also fails with
// not-found rather than silently succeeding.
func (r *Resolver) Merge(ctx context.Context, tx *ledger.Transaction) error {
	if !HasActive(tx) {
		return fmt.Errorf("merge %s: %w", tx.ID, ledger.ErrNoSuggestion)
	}

	posted, err := r.Entries.GetEntry(ctx, tx.Suggestion.EntryID)
	if err != nil {
		return fmt.Errorf("merge %s: posted entry %s: %w", tx.ID, tx.Suggestion.EntryID, err)
	}

	// Single atomic step: the pending entry disappears, suggestion and all.
	if err := r.Entries.DeleteEntry(ctx, tx.ID); err != nil {
		return fmt.Errorf("merge %s into %s: %w", tx.ID, posted.ID, err)
	}
	return nil
}

// Dismiss marks the suggestion as rejected: these are NOT the same
// transaction. The suggestion stays on the record with Dismissed set, so
// the matcher won't re-suggest the same pair.
//
// Requires a suggestion to be present; idempotent once there is one.
func (r *Resolver) Dismiss(ctx context.Context, tx *ledger.Transaction) error {
	if tx == nil || tx.Suggestion == nil {
		return fmt.Errorf("dismiss: %w", ledger.ErrNoSuggestion)
	}

	s := *tx.Suggestion
	s.Dismissed = true
	if err := r.Entries.SetSuggestion(ctx, tx.ID, &s); err != nil {
		return err
	}
	tx.Suggestion = &s
	return nil
}

// Clear removes the suggestion entirely, whatever its state. Used when a
// rematch makes the old suggestion stale.
func (r *Resolver) Clear(ctx context.Context, tx *ledger.Transaction) error {
	if err := r.Entries.SetSuggestion(ctx, tx.ID, nil); err != nil {
		return err
	}
	tx.Suggestion = nil
	return nil
}
