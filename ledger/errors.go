/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is or the helpers at the bottom;
  the HTTP layer maps the classes onto status codes.

ERROR CATEGORIES:
  1. Not-found errors  - Missing accounts, entries, suggestions
  2. Validation errors - Bad input, rejected before any mutation
  3. Store errors      - Persistence-level failures

NOTE ON "POLICY INCOMPLETE":
  A card with no due day configured is an expected steady state, not an
  error. Cycle operations report it as an ok=false / no-op result, never
  as an error value.

SEE ALSO:
  - store.go: Uses the store errors
  - installment/splitter.go: Uses CountRangeError
  - duplicate/resolver.go: Uses ErrNoSuggestion
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEntryNotFound is returned when a referenced transaction doesn't
	// exist. A merge retried after it already succeeded lands here: the
	// pending entry is gone.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrNoSuggestion is returned when a duplicate operation requires a
	// suggestion that isn't there.
	ErrNoSuggestion = errors.New("no duplicate suggestion")

	// ErrDuplicateID is returned when a write collides with an existing
	// primary key. Inside a batch this aborts and rolls back the batch.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidAmount is returned when an amount is missing or unparseable.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrCountOutOfRange is returned when an installment count exceeds the
	// user-facing maximum.
	ErrCountOutOfRange = errors.New("installment count out of range")

	// ErrInvalidNature is returned when a transaction nature is neither
	// inflow nor outflow.
	ErrInvalidNature = errors.New("invalid transaction nature")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CountRangeError reports an installment count outside the allowed range.
type CountRangeError struct {
	Count int
	Min   int
	Max   int
}

func (e *CountRangeError) Error() string {
	return fmt.Sprintf("installment count %d out of range [%d, %d]", e.Count, e.Min, e.Max)
}

func (e *CountRangeError) Unwrap() error { return ErrCountOutOfRange }

// BatchError reports an atomic batch that was rolled back. Index is the
// line that failed; no line of the batch was persisted.
type BatchError struct {
	Index int
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch of %d rolled back: line %d: %v", e.Total, e.Index+1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrNoSuggestion)
}

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrCountOutOfRange) ||
		errors.Is(err, ErrInvalidNature)
}
