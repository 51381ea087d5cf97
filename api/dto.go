/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Amounts travel as decimal strings ("-33.34"), never JSON numbers, so
  nothing on the wire path ever passes through a float.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/centavo/ledger-engine/billing"
	"github.com/centavo/ledger-engine/duplicate"
	"github.com/centavo/ledger-engine/ledger"
)

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Currency            string `json:"currency"`
	DueDay              *int   `json:"due_day,omitempty"`
	CutoffDaysBeforeDue *int   `json:"cutoff_days_before_due,omitempty"`
	CreatedAt           string `json:"created_at,omitempty"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Currency            string `json:"currency"`
	DueDay              int    `json:"due_day"`
	CutoffDaysBeforeDue int    `json:"cutoff_days_before_due"`
}

// UpdateBillingRequest updates a card's billing policy.
type UpdateBillingRequest struct {
	DueDay              int `json:"due_day"`
	CutoffDaysBeforeDue int `json:"cutoff_days_before_due"`
}

// CyclePreviewDTO is the computed billing cycle for a reference month.
type CyclePreviewDTO struct {
	Reference      string `json:"reference"`
	CutoffDate     string `json:"cutoff_date,omitempty"`
	PaymentDueDate string `json:"payment_due_date,omitempty"`
	CycleStart     string `json:"cycle_start,omitempty"`
	CycleEnd       string `json:"cycle_end,omitempty"`
	Configured     bool   `json:"configured"`
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// DuplicateDTO is the duplicate-suggestion block on a transaction.
type DuplicateDTO struct {
	EntryID      string `json:"entry_id"`
	Reason       string `json:"reason"`
	Confidence   string `json:"confidence"`
	PostedAmount string `json:"posted_amount"`
	Dismissed    bool   `json:"dismissed"`
	Active       bool   `json:"active"`
}

// InstallmentDTO is the installment-group block on a transaction.
type InstallmentDTO struct {
	GroupID string `json:"group_id"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Mode    string `json:"mode"`
}

// TransactionDTO represents a transaction in API responses, including the
// computed billing-cycle fields.
type TransactionDTO struct {
	ID                  string          `json:"id"`
	AccountID           string          `json:"account_id"`
	Date                string          `json:"date"`
	Amount              string          `json:"amount"`
	Currency            string          `json:"currency"`
	Name                string          `json:"name"`
	Notes               string          `json:"notes,omitempty"`
	Excluded            bool            `json:"excluded"`
	DeferredToNextCycle bool            `json:"deferred_to_next_cycle"`
	BillingCycleMonth   string          `json:"billing_cycle_month,omitempty"`
	BillingCycleLocked  string          `json:"billing_cycle_locked_at,omitempty"`
	PaymentDueDate      string          `json:"payment_due_date"`
	DeferredBadge       bool            `json:"deferred_badge"`
	Installment         *InstallmentDTO `json:"installment,omitempty"`
	Duplicate           *DuplicateDTO   `json:"duplicate,omitempty"`
}

// CreateTransactionRequest is the request to create one transaction or an
// installment group.
type CreateTransactionRequest struct {
	AccountID           string `json:"account_id"`
	Name                string `json:"name"`
	Date                string `json:"date"`
	Amount              string `json:"amount"`
	Currency            string `json:"currency"`
	Nature              string `json:"nature"` // "inflow" | "outflow"
	Notes               string `json:"notes"`
	DeferredToNextCycle bool   `json:"deferred_to_next_cycle"`
	InstallmentsCount   int    `json:"installments_count"`
	InstallmentMode     string `json:"installment_mode"`
}

// UpdateTransactionRequest carries a partial update; nil fields are left
// unchanged.
type UpdateTransactionRequest struct {
	Name                *string `json:"name"`
	Date                *string `json:"date"`
	Amount              *string `json:"amount"`
	Notes               *string `json:"notes"`
	Excluded            *bool   `json:"excluded"`
	DeferredToNextCycle *bool   `json:"deferred_to_next_cycle"`
}

// MergeResultDTO reports a completed duplicate merge.
type MergeResultDTO struct {
	Merged        bool   `json:"merged"`
	DeletedID     string `json:"deleted_id"`
	PostedEntryID string `json:"posted_entry_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	dto := AccountDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Type:      string(a.Type),
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.Card != nil {
		dueDay := a.Card.DueDay
		cutoff := a.Card.CutoffDaysBeforeDue
		dto.DueDay = &dueDay
		dto.CutoffDaysBeforeDue = &cutoff
	}
	return dto
}

// toTransactionDTO builds the response shape, including the fields the
// engine computes on read: effective payment date and the deferred badge.
func toTransactionDTO(account *ledger.Account, tx *ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                  string(tx.ID),
		AccountID:           string(tx.AccountID),
		Date:                tx.Date.String(),
		Amount:              tx.Amount.String(),
		Currency:            tx.Currency,
		Name:                tx.Name,
		Notes:               tx.Notes,
		Excluded:            tx.Excluded,
		DeferredToNextCycle: tx.DeferredToNextCycle,
	}

	if tx.CycleMonth != nil {
		dto.BillingCycleMonth = tx.CycleMonth.String()
	}
	if tx.CycleLockedAt != nil {
		dto.BillingCycleLocked = tx.CycleLockedAt.UTC().Format(time.RFC3339)
	}

	// Payment date falls back to the transaction date for accounts without
	// billing cycles.
	dto.PaymentDueDate = tx.Date.String()
	if account.IsCreditCard() {
		if due, ok := billing.EffectivePaymentDate(account.Policy(), tx); ok {
			dto.PaymentDueDate = due.String()
		}
		dto.DeferredBadge = billing.DeferredBadgeVisible(account.Policy(), tx)
	}

	if tag := tx.Installment; tag != nil {
		dto.Installment = &InstallmentDTO{
			GroupID: tag.GroupID,
			Index:   tag.Index,
			Total:   tag.Total,
			Mode:    string(tag.Mode),
		}
	}
	if s := tx.Suggestion; s != nil {
		dto.Duplicate = &DuplicateDTO{
			EntryID:      string(s.EntryID),
			Reason:       s.Reason,
			Confidence:   string(duplicate.SuggestionConfidence(tx)),
			PostedAmount: s.PostedAmount.String(),
			Dismissed:    s.Dismissed,
			Active:       duplicate.HasActive(tx),
		}
	}
	return dto
}
