/*
store.go - Persistence interface for accounts and transactions

PURPOSE:
  Defines the interface between the engine and the database. The engine's
  correctness guarantees lean on two store-level contracts:

  1. ATOMIC BATCH: CreateEntries persists an installment group inside one
     all-or-nothing unit. If line i fails, every previously written line of
     the batch is rolled back and no partial group is ever visible.

  2. PER-ENTITY SERIALIZATION: the read-then-write cycles on a single
     transaction (SetCycleLock, SetSuggestion, DeleteEntry) never
     interleave with a concurrent write to the same transaction.
     Operations on different transactions need no coordination.

TARGETED WRITES:
  SetCycleLock and SetSuggestion touch only their own columns. The lock in
  particular must not be rewritten by an unrelated UpdateEntry - that
  one-time stamp is what keeps historical transactions immune to later
  policy edits.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - ledger/store:  In-memory, for tests and dev

SEE ALSO:
  - billing/lock.go: Writes the cycle stamp through this interface
  - duplicate/resolver.go: Mutates suggestions through this interface
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store handles persistence of accounts and transactions.
//
// Missing records surface as ErrAccountNotFound / ErrEntryNotFound, never
// as (nil, nil).
type Store interface {
	// SaveAccount inserts or replaces an account.
	SaveAccount(ctx context.Context, a Account) error

	// GetAccount returns an account, or ErrAccountNotFound.
	GetAccount(ctx context.Context, id AccountID) (*Account, error)

	// ListAccounts returns all accounts.
	ListAccounts(ctx context.Context) ([]Account, error)

	// CreateEntry persists one transaction. Returns ErrDuplicateID on a
	// primary key collision.
	CreateEntry(ctx context.Context, tx Transaction) error

	// CreateEntries persists a batch atomically: all lines or none.
	// Failures are reported as a single *BatchError.
	CreateEntries(ctx context.Context, txs []Transaction) error

	// GetEntry returns a transaction, or ErrEntryNotFound.
	GetEntry(ctx context.Context, id TransactionID) (*Transaction, error)

	// ListEntries returns an account's transactions, oldest first.
	ListEntries(ctx context.Context, accountID AccountID) ([]Transaction, error)

	// UpdateEntry replaces a transaction's editable fields (name, date,
	// amount, notes, deferral flag). It does not touch the cycle lock or
	// the suggestion; those have targeted writes below.
	UpdateEntry(ctx context.Context, tx Transaction) error

	// DeleteEntry removes a transaction. Returns ErrEntryNotFound when it
	// doesn't exist, which is how a repeated merge surfaces.
	DeleteEntry(ctx context.Context, id TransactionID) error

	// SetCycleLock stamps the billing-cycle lock: month is the
	// first-of-month payment month, lockedAt the stamp time.
	SetCycleLock(ctx context.Context, id TransactionID, month Date, lockedAt time.Time) error

	// SetSuggestion replaces the duplicate suggestion. nil clears it.
	SetSuggestion(ctx context.Context, id TransactionID, s *DuplicateSuggestion) error

	// Reset wipes all data. Dev/test only.
	Reset(ctx context.Context) error
}
