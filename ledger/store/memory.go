// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/centavo/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory ledger.Store. A single RWMutex gives it the
// per-entity serialization the engine requires; batches are atomic because
// they happen entirely under the write lock.
type Memory struct {
	mu       sync.RWMutex
	accounts map[ledger.AccountID]ledger.Account
	entries  map[ledger.TransactionID]ledger.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[ledger.AccountID]ledger.Account),
		entries:  make(map[ledger.TransactionID]ledger.Transaction),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) SaveAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	out := cloneAccount(a)
	return &out, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (m *Memory) CreateEntry(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(tx)
}

// CreateEntries persists all lines or none.
func (m *Memory) CreateEntries(_ context.Context, txs []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check every line before writing any, so a mid-batch failure can't
	// leave a partial group behind.
	for i, tx := range txs {
		if _, exists := m.entries[tx.ID]; exists {
			return &ledger.BatchError{Index: i, Total: len(txs), Err: ledger.ErrDuplicateID}
		}
	}
	for i, tx := range txs {
		if err := m.createLocked(tx); err != nil {
			return &ledger.BatchError{Index: i, Total: len(txs), Err: err}
		}
	}
	return nil
}

func (m *Memory) createLocked(tx ledger.Transaction) error {
	if _, exists := m.entries[tx.ID]; exists {
		return ledger.ErrDuplicateID
	}
	m.entries[tx.ID] = cloneTransaction(tx)
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.entries[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	out := cloneTransaction(tx)
	return &out, nil
}

func (m *Memory) ListEntries(_ context.Context, accountID ledger.AccountID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Transaction
	for _, tx := range m.entries {
		if tx.AccountID == accountID {
			out = append(out, cloneTransaction(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateEntry(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.entries[tx.ID]
	if !ok {
		return ledger.ErrEntryNotFound
	}

	// Editable fields only. Cycle lock and suggestion keep their stored
	// values; they have targeted writes.
	existing.Date = tx.Date
	existing.Amount = tx.Amount
	existing.Currency = tx.Currency
	existing.Name = tx.Name
	existing.Notes = tx.Notes
	existing.Excluded = tx.Excluded
	existing.DeferredToNextCycle = tx.DeferredToNextCycle
	m.entries[tx.ID] = existing
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ledger.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *Memory) SetCycleLock(_ context.Context, id ledger.TransactionID, month ledger.Date, lockedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.entries[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	monthCopy := month
	lockedCopy := lockedAt
	tx.CycleMonth = &monthCopy
	tx.CycleLockedAt = &lockedCopy
	m.entries[id] = tx
	return nil
}

func (m *Memory) SetSuggestion(_ context.Context, id ledger.TransactionID, s *ledger.DuplicateSuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.entries[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	if s == nil {
		tx.Suggestion = nil
	} else {
		sCopy := *s
		tx.Suggestion = &sCopy
	}
	m.entries[id] = tx
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[ledger.AccountID]ledger.Account)
	m.entries = make(map[ledger.TransactionID]ledger.Transaction)
	return nil
}

// =============================================================================
// CLONING - Callers never share pointers with the store
// =============================================================================

func cloneAccount(a ledger.Account) ledger.Account {
	out := a
	if a.Card != nil {
		card := *a.Card
		out.Card = &card
	}
	return out
}

func cloneTransaction(tx ledger.Transaction) ledger.Transaction {
	out := tx
	if tx.CycleMonth != nil {
		month := *tx.CycleMonth
		out.CycleMonth = &month
	}
	if tx.CycleLockedAt != nil {
		at := *tx.CycleLockedAt
		out.CycleLockedAt = &at
	}
	if tx.Suggestion != nil {
		s := *tx.Suggestion
		out.Suggestion = &s
	}
	if tx.Installment != nil {
		tag := *tx.Installment
		out.Installment = &tag
	}
	return out
}
