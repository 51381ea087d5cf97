/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic. This is the
  orchestration boundary: the create handler runs the splitter, persists
  the batch atomically, and stamps each persisted line's billing cycle.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                    List accounts
    POST   /api/accounts                    Create account
    GET    /api/accounts/{id}               Get account
    PUT    /api/accounts/{id}/billing       Update card policy
    GET    /api/accounts/{id}/cycle         Billing-cycle preview
    GET    /api/accounts/{id}/transactions  List entries

  Transactions:
    POST   /api/transactions                Create (nature, installments)
    GET    /api/transactions/{id}           Get entry
    PUT    /api/transactions/{id}           Update (deferral change relocks)
    DELETE /api/transactions/{id}           Delete entry
    POST   /api/transactions/{id}/merge-duplicate
    POST   /api/transactions/{id}/dismiss-duplicate

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate ID)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavo/ledger-engine/billing"
	"github.com/centavo/ledger-engine/duplicate"
	"github.com/centavo/ledger-engine/installment"
	"github.com/centavo/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.Store
	Locker   *billing.Locker
	Resolver *duplicate.Resolver

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store ledger.Store) *Handler {
	return &Handler{
		Store:    store,
		Locker:   billing.NewLocker(store),
		Resolver: duplicate.NewResolver(store),
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatusError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Name == "" {
		writeStatusError(w, http.StatusBadRequest, "Account name is required", nil)
		return
	}

	accountType := ledger.AccountType(req.Type)
	if accountType == "" {
		accountType = ledger.AccountDepository
	}

	a := ledger.Account{
		ID:       ledger.AccountID(req.ID),
		Name:     req.Name,
		Type:     accountType,
		Currency: req.Currency,
	}
	if a.ID == "" {
		a.ID = ledger.AccountID(uuid.NewString())
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}

	if accountType == ledger.AccountCreditCard {
		policy, err := validatePolicy(req.DueDay, req.CutoffDaysBeforeDue)
		if err != nil {
			writeStatusError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		a.Card = policy
	}

	if err := h.Store.SaveAccount(r.Context(), a); err != nil {
		writeError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Store.GetAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// UpdateBilling updates a card's billing policy. Existing locked
// transactions keep their stamped cycle month; only future locks see the
// new policy.
func (h *Handler) UpdateBilling(w http.ResponseWriter, r *http.Request) {
	var req UpdateBillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatusError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Store.GetAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}
	if !account.IsCreditCard() {
		writeStatusError(w, http.StatusBadRequest, "Billing settings apply to credit card accounts only", nil)
		return
	}

	policy, err := validatePolicy(req.DueDay, req.CutoffDaysBeforeDue)
	if err != nil {
		writeStatusError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	account.Card = policy

	if err := h.Store.SaveAccount(r.Context(), *account); err != nil {
		writeError(w, "Failed to update billing settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// CyclePreview returns the computed cutoff date, payment due date, and
// cycle window for a reference date (default: today).
func (h *Handler) CyclePreview(w http.ResponseWriter, r *http.Request) {
	account, err := h.Store.GetAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}

	reference := ledger.Today()
	if ref := r.URL.Query().Get("reference"); ref != "" {
		if reference, err = ledger.ParseDate(ref); err != nil {
			writeStatusError(w, http.StatusBadRequest, "Invalid reference date (use YYYY-MM-DD)", err)
			return
		}
	}

	policy := account.Policy()
	dto := CyclePreviewDTO{Reference: reference.String()}

	if cutoff, ok := billing.CutoffDate(policy, reference); ok {
		dto.Configured = true
		dto.CutoffDate = cutoff.String()
	}
	if due, ok := billing.PaymentDueDate(policy, reference); ok {
		dto.PaymentDueDate = due.String()
		if window, ok := billing.CycleWindow(policy, due); ok {
			dto.CycleStart = window.Start.String()
			dto.CycleEnd = window.End.String()
		}
	}

	writeJSON(w, http.StatusOK, dto)
}

// ListAccountTransactions returns an account's entries with computed
// billing fields.
func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := h.Store.GetAccount(ctx, ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}

	entries, err := h.Store.ListEntries(ctx, account.ID)
	if err != nil {
		writeError(w, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(entries))
	for i := range entries {
		dtos[i] = toTransactionDTO(account, &entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// CreateTransaction creates one transaction or an installment group.
//
// Flow: normalize the inflow/outflow sign, run the splitter, persist the
// batch atomically, then stamp each persisted line's billing cycle.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatusError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Store.GetAccount(ctx, ledger.AccountID(req.AccountID))
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}

	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeStatusError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, "Invalid amount", err)
		return
	}

	// Sign normalization happens here, before the engine sees the amount:
	// positive = outflow, negative = inflow.
	switch req.Nature {
	case "outflow":
		amount = amount.Abs()
	case "inflow":
		amount = amount.Abs().Neg()
	default:
		writeError(w, "Invalid transaction type", fmt.Errorf("nature %q: %w", req.Nature, ledger.ErrInvalidNature))
		return
	}

	mode := ledger.InstallmentMode(req.InstallmentMode)
	switch mode {
	case "", ledger.ModeDivide:
		mode = ledger.ModeDivide
	case ledger.ModeReplicate:
	default:
		writeStatusError(w, http.StatusBadRequest, "Invalid installment mode", nil)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = account.Currency
	}

	plan, err := installment.Split(amount, req.InstallmentsCount, mode, date, req.Name)
	if err != nil {
		writeError(w, "Invalid installments", err)
		return
	}

	txs := make([]ledger.Transaction, len(plan.Lines))
	for i, line := range plan.Lines {
		txs[i] = ledger.Transaction{
			ID:                  ledger.TransactionID(uuid.NewString()),
			AccountID:           account.ID,
			Date:                line.Date,
			Amount:              line.Amount,
			Currency:            currency,
			Name:                line.Label,
			Notes:               req.Notes,
			DeferredToNextCycle: req.DeferredToNextCycle,
		}
		if len(plan.Lines) > 1 {
			tag := plan.Tag(i)
			txs[i].Installment = &tag
		} else {
			// A single line keeps the submitted name; no group metadata.
			txs[i].Name = req.Name
		}
	}

	// Atomic batch: a failure on any line rolls back the whole group.
	if err := h.Store.CreateEntries(ctx, txs); err != nil {
		writeError(w, "Failed to create transactions", err)
		return
	}

	// Lock each persisted transaction's billing cycle.
	now := time.Now().UTC()
	for i := range txs {
		if err := h.Locker.Lock(ctx, account, &txs[i], now); err != nil {
			writeError(w, "Failed to lock billing cycle", err)
			return
		}
	}

	dtos := make([]TransactionDTO, len(txs))
	for i := range txs {
		dtos[i] = toTransactionDTO(account, &txs[i])
	}
	if len(dtos) == 1 {
		writeJSON(w, http.StatusCreated, dtos[0])
		return
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tx, err := h.Store.GetEntry(ctx, ledger.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get transaction", err)
		return
	}
	account, err := h.Store.GetAccount(ctx, tx.AccountID)
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(account, tx))
}

// UpdateTransaction applies a partial update. A change to the manual
// deferral flag triggers a billing-cycle relock; nothing else does.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatusError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Store.GetEntry(ctx, ledger.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get transaction", err)
		return
	}
	account, err := h.Store.GetAccount(ctx, tx.AccountID)
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}

	if req.Name != nil {
		tx.Name = *req.Name
	}
	if req.Notes != nil {
		tx.Notes = *req.Notes
	}
	if req.Excluded != nil {
		tx.Excluded = *req.Excluded
	}
	if req.Date != nil {
		if tx.Date, err = ledger.ParseDate(*req.Date); err != nil {
			writeStatusError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
	}
	if req.Amount != nil {
		if tx.Amount, err = parseAmount(*req.Amount); err != nil {
			writeError(w, "Invalid amount", err)
			return
		}
	}

	deferredChanged := false
	if req.DeferredToNextCycle != nil && *req.DeferredToNextCycle != tx.DeferredToNextCycle {
		tx.DeferredToNextCycle = *req.DeferredToNextCycle
		deferredChanged = true
	}

	if err := h.Store.UpdateEntry(ctx, *tx); err != nil {
		writeError(w, "Failed to update transaction", err)
		return
	}

	// Relock only when the deferral flag changed; policy edits alone never
	// move an already-locked transaction.
	if deferredChanged {
		if err := h.Locker.Lock(ctx, account, tx, time.Now().UTC()); err != nil {
			writeError(w, "Failed to relock billing cycle", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(account, tx))
}

// DeleteTransaction removes a transaction.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteEntry(r.Context(), ledger.TransactionID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DUPLICATE HANDLERS
// =============================================================================

// MergeDuplicate deletes the pending transaction in favor of its posted
// counterpart. Retrying after success returns 404: the pending entry is
// already gone.
func (h *Handler) MergeDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tx, err := h.Store.GetEntry(ctx, ledger.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get transaction", err)
		return
	}

	if err := h.Resolver.Merge(ctx, tx); err != nil {
		writeError(w, "Failed to merge duplicate", err)
		return
	}

	log.Printf("merged pending entry %s (%s) with posted entry %s", tx.ID, tx.Name, tx.Suggestion.EntryID)
	writeJSON(w, http.StatusOK, MergeResultDTO{
		Merged:        true,
		DeletedID:     string(tx.ID),
		PostedEntryID: string(tx.Suggestion.EntryID),
	})
}

// DismissDuplicate marks the suggestion as rejected. Idempotent.
func (h *Handler) DismissDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tx, err := h.Store.GetEntry(ctx, ledger.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, "Failed to get transaction", err)
		return
	}
	account, err := h.Store.GetAccount(ctx, tx.AccountID)
	if err != nil {
		writeError(w, "Failed to get account", err)
		return
	}

	if err := h.Resolver.Dismiss(ctx, tx); err != nil {
		writeError(w, "Failed to dismiss duplicate suggestion", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(account, tx))
}

// =============================================================================
// HELPERS
// =============================================================================

func validatePolicy(dueDay, cutoffDays int) (*ledger.CardPolicy, error) {
	if dueDay < 0 || dueDay > 31 {
		return nil, fmt.Errorf("due_day must be between 1 and 31")
	}
	if cutoffDays < 0 {
		return nil, fmt.Errorf("cutoff_days_before_due must not be negative")
	}
	return &ledger.CardPolicy{DueDay: dueDay, CutoffDaysBeforeDue: cutoffDays}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount missing: %w", ledger.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, ledger.ErrInvalidAmount)
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, message string, err error) {
	writeStatusError(w, statusForError(err), message, err)
}

func writeStatusError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

func statusForError(err error) int {
	switch {
	case ledger.IsValidation(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
