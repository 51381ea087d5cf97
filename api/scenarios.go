/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates accounts and
	transactions that demonstrate specific engine features.

AVAILABLE SCENARIOS:

	billing-cycle:   Credit card with a cutoff window; charges before and
	                 after the cutoff, plus a manual deferral
	installments:    A purchase split into 3 exact-cents installments
	duplicate-pair:  A pending entry with a suggested posted match

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create accounts (with card policy where relevant)
 3. Create transactions and lock their billing cycles
 4. Attach duplicate suggestions where the scenario needs them

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler plumbing
  - server.go: Route wiring
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centavo/ledger-engine/installment"
	"github.com/centavo/ledger-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "billing-cycle",
		Name:        "Billing Cycle",
		Description: "Credit card due on the 15th, 5-day cutoff: charges before and after the cutoff, plus a manual deferral",
	},
	{
		ID:          "installments",
		Name:        "Installments",
		Description: "A 1250.00 purchase split into 3 exact-cents monthly installments",
	},
	{
		ID:          "duplicate-pair",
		Name:        "Duplicate Pair",
		Description: "A pending card charge with a suggested posted match, ready to merge or dismiss",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatusError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "billing-cycle":
		err = h.loadBillingCycleScenario(ctx)
	case "installments":
		err = h.loadInstallmentsScenario(ctx)
	case "duplicate-pair":
		err = h.loadDuplicatePairScenario(ctx)
	default:
		writeStatusError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	if err != nil {
		writeError(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) demoCard(ctx context.Context) (*ledger.Account, error) {
	card := ledger.Account{
		ID:       "cc-demo",
		Name:     "Sapphire Card",
		Type:     ledger.AccountCreditCard,
		Currency: "USD",
		Card:     &ledger.CardPolicy{DueDay: 15, CutoffDaysBeforeDue: 5},
	}
	if err := h.Store.SaveAccount(ctx, card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (h *Handler) seedCharge(ctx context.Context, account *ledger.Account, tx ledger.Transaction) error {
	if err := h.Store.CreateEntry(ctx, tx); err != nil {
		return err
	}
	return h.Locker.Lock(ctx, account, &tx, time.Now().UTC())
}

// loadBillingCycleScenario: due day 15, cutoff Mar 10. The Mar 5 charge
// pays Mar 15; the Mar 12 charge rolls to Apr 15; the Mar 3 charge is
// manually deferred to Apr 15.
func (h *Handler) loadBillingCycleScenario(ctx context.Context) error {
	card, err := h.demoCard(ctx)
	if err != nil {
		return err
	}

	charges := []ledger.Transaction{
		{
			ID: "tx-groceries", AccountID: card.ID,
			Date:   ledger.NewDate(2025, time.March, 5),
			Amount: decimal.RequireFromString("82.45"),
			Name:   "Groceries", Currency: "USD",
		},
		{
			ID: "tx-electronics", AccountID: card.ID,
			Date:   ledger.NewDate(2025, time.March, 12),
			Amount: decimal.RequireFromString("349.99"),
			Name:   "Headphones", Currency: "USD",
		},
		{
			ID: "tx-deferred", AccountID: card.ID,
			Date:   ledger.NewDate(2025, time.March, 3),
			Amount: decimal.RequireFromString("129.00"),
			Name:   "Annual subscription", Currency: "USD",
			DeferredToNextCycle: true,
		},
	}

	for _, tx := range charges {
		if err := h.seedCharge(ctx, card, tx); err != nil {
			return err
		}
	}
	return nil
}

// loadInstallmentsScenario: one purchase divided across 3 months; the
// first line carries the extra cents so the lines sum back exactly.
func (h *Handler) loadInstallmentsScenario(ctx context.Context) error {
	card, err := h.demoCard(ctx)
	if err != nil {
		return err
	}

	principal := decimal.RequireFromString("1250.00")
	plan, err := installment.Split(principal, 3, ledger.ModeDivide,
		ledger.NewDate(2025, time.January, 31), "New laptop")
	if err != nil {
		return err
	}

	txs := make([]ledger.Transaction, len(plan.Lines))
	for i, line := range plan.Lines {
		tag := plan.Tag(i)
		txs[i] = ledger.Transaction{
			ID:          ledger.TransactionID(fmt.Sprintf("tx-laptop-%d", line.Index)),
			AccountID:   card.ID,
			Date:        line.Date,
			Amount:      line.Amount,
			Currency:    "USD",
			Name:        line.Label,
			Installment: &tag,
		}
	}
	if err := h.Store.CreateEntries(ctx, txs); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range txs {
		if err := h.Locker.Lock(ctx, card, &txs[i], now); err != nil {
			return err
		}
	}
	return nil
}

// loadDuplicatePairScenario: a posted charge plus a pending one the
// matcher flagged as its likely duplicate.
func (h *Handler) loadDuplicatePairScenario(ctx context.Context) error {
	card, err := h.demoCard(ctx)
	if err != nil {
		return err
	}

	posted := ledger.Transaction{
		ID: "tx-posted", AccountID: card.ID,
		Date:   ledger.NewDate(2025, time.April, 2),
		Amount: decimal.RequireFromString("54.20"),
		Name:   "RIDESHARE 04/02", Currency: "USD",
	}
	pending := ledger.Transaction{
		ID: "tx-pending", AccountID: card.ID,
		Date:   ledger.NewDate(2025, time.March, 31),
		Amount: decimal.RequireFromString("54.20"),
		Name:   "Rideshare (pending)", Currency: "USD",
		Suggestion: &ledger.DuplicateSuggestion{
			EntryID:      "tx-posted",
			Reason:       "same amount within 3 days",
			Confidence:   ledger.ConfidenceHigh,
			PostedAmount: decimal.RequireFromString("54.20"),
		},
	}

	for _, tx := range []ledger.Transaction{posted, pending} {
		if err := h.seedCharge(ctx, card, tx); err != nil {
			return err
		}
	}
	return nil
}
