/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists accounts and transactions. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  accounts:  Account records with the optional card policy columns
  entries:   Transactions with billing-cycle lock columns, the duplicate
             suggestion as a JSON blob, and flattened installment columns

ENGINE CONTRACTS (see ledger/store.go):
  - CreateEntries runs inside one BEGIN/COMMIT; a failing line rolls the
    whole installment group back, so readers never see a partial group.
  - Writes are serialized behind a mutex (and SQLite's single writer), so
    a lock stamp or suggestion update never interleaves with a concurrent
    write to the same entry.
  - SetCycleLock and SetSuggestion are targeted UPDATEs on their own
    columns; UpdateEntry deliberately cannot touch them.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definition and contracts
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/centavo/ledger-engine/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		currency TEXT NOT NULL,
		-- Card policy. NULL = no policy configured (non-card accounts).
		due_day INTEGER,
		cutoff_days_before_due INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		name TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		excluded INTEGER NOT NULL DEFAULT 0,
		deferred_to_next_cycle INTEGER NOT NULL DEFAULT 0,

		-- Billing-cycle lock. Written once at creation, rewritten only on
		-- a deferral change. Month is always a first-of-month date.
		billing_cycle_month TEXT,
		billing_cycle_locked_at TEXT,

		-- Duplicate suggestion (at most one per entry).
		suggestion_json TEXT,

		-- Installment group membership.
		installment_group TEXT,
		installment_index INTEGER,
		installment_total INTEGER,
		installment_mode TEXT,

		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_account_date
		ON entries(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_entries_cycle_month
		ON entries(billing_cycle_month) WHERE billing_cycle_month IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_entries_installment_group
		ON entries(installment_group) WHERE installment_group IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_entries_deferred
		ON entries(deferred_to_next_cycle);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dueDay, cutoff sql.NullInt64
	if a.Card != nil {
		dueDay = sql.NullInt64{Int64: int64(a.Card.DueDay), Valid: true}
		cutoff = sql.NullInt64{Int64: int64(a.Card.CutoffDaysBeforeDue), Valid: true}
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO accounts (id, name, type, currency, due_day, cutoff_days_before_due, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			currency = excluded.currency,
			due_day = excluded.due_day,
			cutoff_days_before_due = excluded.cutoff_days_before_due
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Type, a.Currency, dueDay, cutoff,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, currency, due_day, cutoff_days_before_due, created_at
		FROM accounts WHERE id = ?
	`, id)

	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, currency, due_day, cutoff_days_before_due, created_at
		FROM accounts ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*ledger.Account, error) {
	var a ledger.Account
	var dueDay, cutoff sql.NullInt64
	var createdAt string

	if err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Currency, &dueDay, &cutoff, &createdAt); err != nil {
		return nil, err
	}

	if dueDay.Valid || cutoff.Valid {
		a.Card = &ledger.CardPolicy{
			DueDay:              int(dueDay.Int64),
			CutoffDaysBeforeDue: int(cutoff.Int64),
		}
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Store) CreateEntry(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertEntry(ctx, s.db, tx)
}

// CreateEntries persists the batch inside one database transaction: all
// lines or none.
func (s *Store) CreateEntries(ctx context.Context, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for i, tx := range txs {
		if err := s.insertEntry(ctx, sqlTx, tx); err != nil {
			return &ledger.BatchError{Index: i, Total: len(txs), Err: err}
		}
	}

	return sqlTx.Commit()
}

func (s *Store) insertEntry(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, tx ledger.Transaction) error {
	suggestionJSON, err := marshalSuggestion(tx.Suggestion)
	if err != nil {
		return err
	}

	var instGroup, instMode sql.NullString
	var instIndex, instTotal sql.NullInt64
	if tag := tx.Installment; tag != nil {
		instGroup = sql.NullString{String: tag.GroupID, Valid: true}
		instMode = sql.NullString{String: string(tag.Mode), Valid: true}
		instIndex = sql.NullInt64{Int64: int64(tag.Index), Valid: true}
		instTotal = sql.NullInt64{Int64: int64(tag.Total), Valid: true}
	}

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO entries
		(id, account_id, date, amount, currency, name, notes, excluded,
		 deferred_to_next_cycle, billing_cycle_month, billing_cycle_locked_at,
		 suggestion_json, installment_group, installment_index, installment_total,
		 installment_mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Date.String(),
		tx.Amount.String(),
		tx.Currency,
		tx.Name,
		tx.Notes,
		boolToInt(tx.Excluded),
		boolToInt(tx.DeferredToNextCycle),
		nullDate(tx.CycleMonth),
		nullTime(tx.CycleLockedAt),
		suggestionJSON,
		instGroup, instIndex, instTotal, instMode,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("entry %s: %w", tx.ID, ledger.ErrDuplicateID)
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)

	tx, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return tx, nil
}

func (s *Store) ListEntries(ctx context.Context, accountID ledger.AccountID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE account_id = ? ORDER BY date ASC, id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		tx, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// UpdateEntry rewrites the editable fields only. The cycle lock and the
// suggestion are untouchable from here; they have targeted writes below.
func (s *Store) UpdateEntry(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET date = ?, amount = ?, currency = ?, name = ?, notes = ?,
		    excluded = ?, deferred_to_next_cycle = ?
		WHERE id = ?
	`,
		tx.Date.String(), tx.Amount.String(), tx.Currency, tx.Name, tx.Notes,
		boolToInt(tx.Excluded), boolToInt(tx.DeferredToNextCycle), tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return requireRow(res, ledger.ErrEntryNotFound)
}

func (s *Store) DeleteEntry(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return requireRow(res, ledger.ErrEntryNotFound)
}

func (s *Store) SetCycleLock(ctx context.Context, id ledger.TransactionID, month ledger.Date, lockedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET billing_cycle_month = ?, billing_cycle_locked_at = ?
		WHERE id = ?
	`, month.String(), lockedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to set cycle lock: %w", err)
	}
	return requireRow(res, ledger.ErrEntryNotFound)
}

func (s *Store) SetSuggestion(ctx context.Context, id ledger.TransactionID, sg *ledger.DuplicateSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	suggestionJSON, err := marshalSuggestion(sg)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries SET suggestion_json = ? WHERE id = ?
	`, suggestionJSON, id)
	if err != nil {
		return fmt.Errorf("failed to set suggestion: %w", err)
	}
	return requireRow(res, ledger.ErrEntryNotFound)
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts`)
	return err
}

// =============================================================================
// SCANNING
// =============================================================================

const selectEntry = `
	SELECT id, account_id, date, amount, currency, name, notes, excluded,
	       deferred_to_next_cycle, billing_cycle_month, billing_cycle_locked_at,
	       suggestion_json, installment_group, installment_index,
	       installment_total, installment_mode, created_at
	FROM entries`

func scanEntry(row rowScanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	var date, amount, createdAt string
	var excluded, deferred int
	var cycleMonth, cycleLockedAt, suggestionJSON, instGroup, instMode sql.NullString
	var instIndex, instTotal sql.NullInt64

	err := row.Scan(&tx.ID, &tx.AccountID, &date, &amount, &tx.Currency, &tx.Name,
		&tx.Notes, &excluded, &deferred, &cycleMonth, &cycleLockedAt,
		&suggestionJSON, &instGroup, &instIndex, &instTotal, &instMode, &createdAt)
	if err != nil {
		return nil, err
	}

	if tx.Date, err = ledger.ParseDate(date); err != nil {
		return nil, fmt.Errorf("bad date %q: %w", date, err)
	}
	if err := tx.Amount.UnmarshalText([]byte(amount)); err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	tx.Excluded = excluded != 0
	tx.DeferredToNextCycle = deferred != 0

	if cycleMonth.Valid {
		month, err := ledger.ParseDate(cycleMonth.String)
		if err != nil {
			return nil, fmt.Errorf("bad cycle month %q: %w", cycleMonth.String, err)
		}
		tx.CycleMonth = &month
	}
	if cycleLockedAt.Valid {
		at, err := time.Parse(time.RFC3339, cycleLockedAt.String)
		if err != nil {
			return nil, fmt.Errorf("bad lock timestamp %q: %w", cycleLockedAt.String, err)
		}
		tx.CycleLockedAt = &at
	}
	if suggestionJSON.Valid && suggestionJSON.String != "" {
		var sg ledger.DuplicateSuggestion
		if err := json.Unmarshal([]byte(suggestionJSON.String), &sg); err != nil {
			return nil, fmt.Errorf("bad suggestion json: %w", err)
		}
		tx.Suggestion = &sg
	}
	if instGroup.Valid {
		tx.Installment = &ledger.InstallmentTag{
			GroupID: instGroup.String,
			Index:   int(instIndex.Int64),
			Total:   int(instTotal.Int64),
			Mode:    ledger.InstallmentMode(instMode.String),
		}
	}
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tx, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func marshalSuggestion(s *ledger.DuplicateSuggestion) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal suggestion: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullDate(d *ledger.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
