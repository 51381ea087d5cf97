package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centavo/ledger-engine/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAccount(t *testing.T, s *Store) ledger.Account {
	t.Helper()
	a := ledger.Account{
		ID:       "cc-1",
		Name:     "Test Card",
		Type:     ledger.AccountCreditCard,
		Currency: "USD",
		Card:     &ledger.CardPolicy{DueDay: 15, CutoffDaysBeforeDue: 5},
	}
	require.NoError(t, s.SaveAccount(context.Background(), a))
	return a
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := seedAccount(t, s)
	checking := ledger.Account{
		ID:       "dep-1",
		Name:     "Checking",
		Type:     ledger.AccountDepository,
		Currency: "USD",
	}
	require.NoError(t, s.SaveAccount(ctx, checking))

	got, err := s.GetAccount(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Name, got.Name)
	assert.Equal(t, ledger.AccountCreditCard, got.Type)
	require.NotNil(t, got.Card)
	assert.Equal(t, 15, got.Card.DueDay)
	assert.Equal(t, 5, got.Card.CutoffDaysBeforeDue)

	// Non-card accounts carry no policy.
	got, err = s.GetAccount(ctx, checking.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Card)

	all, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSaveAccount_UpsertsPolicy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s)

	a.Card = &ledger.CardPolicy{DueDay: 25, CutoffDaysBeforeDue: 0}
	require.NoError(t, s.SaveAccount(ctx, a))

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Card)
	assert.Equal(t, 25, got.Card.DueDay)
	assert.Equal(t, 0, got.Card.CutoffDaysBeforeDue)
}

func TestGetAccount_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAccount(context.Background(), "nope")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestEntryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)

	month := ledger.NewDate(2025, time.April, 1)
	lockedAt := time.Date(2025, time.March, 12, 10, 30, 0, 0, time.UTC)
	tx := ledger.Transaction{
		ID:                  "tx-1",
		AccountID:           "cc-1",
		Date:                ledger.NewDate(2025, time.March, 12),
		Amount:              decimal.RequireFromString("349.99"),
		Currency:            "USD",
		Name:                "Headphones",
		Notes:               "birthday",
		Excluded:            true,
		DeferredToNextCycle: true,
		CycleMonth:          &month,
		CycleLockedAt:       &lockedAt,
		Suggestion: &ledger.DuplicateSuggestion{
			EntryID:      "tx-other",
			Reason:       "same amount within 3 days",
			Confidence:   ledger.ConfidenceHigh,
			PostedAmount: decimal.RequireFromString("349.99"),
		},
		Installment: &ledger.InstallmentTag{
			GroupID: "grp-1",
			Index:   2,
			Total:   3,
			Mode:    ledger.ModeDivide,
		},
	}
	require.NoError(t, s.CreateEntry(ctx, tx))

	got, err := s.GetEntry(ctx, tx.ID)
	require.NoError(t, err)

	assert.Equal(t, tx.AccountID, got.AccountID)
	assert.True(t, got.Date.Equal(tx.Date), "date = %s", got.Date)
	assert.True(t, got.Amount.Equal(tx.Amount), "amount = %s", got.Amount)
	assert.Equal(t, "Headphones", got.Name)
	assert.Equal(t, "birthday", got.Notes)
	assert.True(t, got.Excluded)
	assert.True(t, got.DeferredToNextCycle)

	require.NotNil(t, got.CycleMonth)
	assert.True(t, got.CycleMonth.Equal(month))
	require.NotNil(t, got.CycleLockedAt)
	assert.True(t, got.CycleLockedAt.Equal(lockedAt))

	require.NotNil(t, got.Suggestion)
	assert.Equal(t, ledger.TransactionID("tx-other"), got.Suggestion.EntryID)
	assert.Equal(t, ledger.ConfidenceHigh, got.Suggestion.Confidence)
	assert.True(t, got.Suggestion.PostedAmount.Equal(tx.Suggestion.PostedAmount))
	assert.False(t, got.Suggestion.Dismissed)

	require.NotNil(t, got.Installment)
	assert.Equal(t, "grp-1", got.Installment.GroupID)
	assert.Equal(t, 2, got.Installment.Index)
	assert.Equal(t, 3, got.Installment.Total)
	assert.Equal(t, ledger.ModeDivide, got.Installment.Mode)
}

func TestCreateEntry_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)

	tx := ledger.Transaction{
		ID: "tx-1", AccountID: "cc-1",
		Date:   ledger.NewDate(2025, time.March, 5),
		Amount: decimal.RequireFromString("10.00"),
	}
	require.NoError(t, s.CreateEntry(ctx, tx))
	err := s.CreateEntry(ctx, tx)
	assert.ErrorIs(t, err, ledger.ErrDuplicateID)
}

func TestCreateEntries_AllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)

	mk := func(id string) ledger.Transaction {
		return ledger.Transaction{
			ID: ledger.TransactionID(id), AccountID: "cc-1",
			Date:   ledger.NewDate(2025, time.January, 15),
			Amount: decimal.RequireFromString("33.33"),
		}
	}

	// The third line collides with the first: nothing may persist.
	err := s.CreateEntries(ctx, []ledger.Transaction{mk("tx-a"), mk("tx-b"), mk("tx-a")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrDuplicateID)

	var batchErr *ledger.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 3, batchErr.Total)

	entries, listErr := s.ListEntries(ctx, "cc-1")
	require.NoError(t, listErr)
	assert.Empty(t, entries, "a failed batch must leave no partial group")

	// The same batch without the collision persists all lines.
	require.NoError(t, s.CreateEntries(ctx, []ledger.Transaction{mk("tx-a"), mk("tx-b"), mk("tx-c")}))
	entries, listErr = s.ListEntries(ctx, "cc-1")
	require.NoError(t, listErr)
	assert.Len(t, entries, 3)
}

func TestUpdateEntry_LeavesLockAndSuggestionAlone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)

	tx := ledger.Transaction{
		ID: "tx-1", AccountID: "cc-1",
		Date:   ledger.NewDate(2025, time.March, 12),
		Amount: decimal.RequireFromString("50.00"),
		Name:   "Before",
	}
	require.NoError(t, s.CreateEntry(ctx, tx))

	month := ledger.NewDate(2025, time.April, 1)
	require.NoError(t, s.SetCycleLock(ctx, tx.ID, month, time.Now().UTC()))
	require.NoError(t, s.SetSuggestion(ctx, tx.ID, &ledger.DuplicateSuggestion{
		EntryID: "tx-other", Confidence: ledger.ConfidenceLow,
	}))

	// A general update rewrites the editable fields only.
	tx.Name = "After"
	tx.CycleMonth = nil  // caller's stale view must not clear the lock
	tx.Suggestion = nil  // nor the suggestion
	require.NoError(t, s.UpdateEntry(ctx, tx))

	got, err := s.GetEntry(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	require.NotNil(t, got.CycleMonth)
	assert.True(t, got.CycleMonth.Equal(month))
	require.NotNil(t, got.Suggestion)
	assert.Equal(t, ledger.TransactionID("tx-other"), got.Suggestion.EntryID)
}

func TestSetSuggestion_NilClears(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)

	tx := ledger.Transaction{
		ID: "tx-1", AccountID: "cc-1",
		Date:   ledger.NewDate(2025, time.March, 5),
		Amount: decimal.RequireFromString("10.00"),
		Suggestion: &ledger.DuplicateSuggestion{
			EntryID: "tx-other", Confidence: ledger.ConfidenceMedium,
		},
	}
	require.NoError(t, s.CreateEntry(ctx, tx))
	require.NoError(t, s.SetSuggestion(ctx, tx.ID, nil))

	got, err := s.GetEntry(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Suggestion)
}

func TestTargetedWrites_MissingEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SetCycleLock(ctx, "nope", ledger.NewDate(2025, time.April, 1), time.Now().UTC())
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	err = s.SetSuggestion(ctx, "nope", nil)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	err = s.DeleteEntry(ctx, "nope")
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestDeleteEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)

	tx := ledger.Transaction{
		ID: "tx-1", AccountID: "cc-1",
		Date:   ledger.NewDate(2025, time.March, 5),
		Amount: decimal.RequireFromString("10.00"),
	}
	require.NoError(t, s.CreateEntry(ctx, tx))
	require.NoError(t, s.DeleteEntry(ctx, tx.ID))

	_, err := s.GetEntry(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestListEntries_SortedByDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)

	dates := []ledger.Date{
		ledger.NewDate(2025, time.March, 12),
		ledger.NewDate(2025, time.March, 3),
		ledger.NewDate(2025, time.March, 5),
	}
	for i, d := range dates {
		require.NoError(t, s.CreateEntry(ctx, ledger.Transaction{
			ID: ledger.TransactionID([]string{"tx-a", "tx-b", "tx-c"}[i]), AccountID: "cc-1",
			Date:   d,
			Amount: decimal.RequireFromString("10.00"),
		}))
	}

	entries, err := s.ListEntries(ctx, "cc-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Date.BeforeOrEqual(entries[1].Date))
	assert.True(t, entries[1].Date.BeforeOrEqual(entries[2].Date))
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s)
	require.NoError(t, s.CreateEntry(ctx, ledger.Transaction{
		ID: "tx-1", AccountID: "cc-1",
		Date:   ledger.NewDate(2025, time.March, 5),
		Amount: decimal.RequireFromString("10.00"),
	}))

	require.NoError(t, s.Reset(ctx))

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	_, err = s.GetEntry(ctx, "tx-1")
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}
