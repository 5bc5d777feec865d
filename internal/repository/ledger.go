package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

const ledgerColumns = `id, transaction_id, account_id, entry_type, amount, created_at`

// LedgerRepository is append-only. There is deliberately no update or delete
// method; a database trigger additionally rejects mutation from any path and
// surfaces as domain.ErrLedgerImmutable.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, transaction_id, account_id, entry_type, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.TransactionID, entry.AccountID, entry.EntryType,
		entry.Amount, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Balance derives the account balance as the sum of credits minus the sum of
// debits over all committed entries. Accounts with no entries balance to 0.
// A negative result for a user account signals an inconsistent ledger and is
// returned as-is, never clamped.
func (r *LedgerRepository) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return ledgerBalance(ctx, r.db, accountID)
}

// BalanceInTx runs the same aggregation inside tx so the result reflects the
// transaction's isolation level and any row locks already taken.
func (r *LedgerRepository) BalanceInTx(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) (int64, error) {
	return ledgerBalance(ctx, tx, accountID)
}

func ledgerBalance(ctx context.Context, q rowQuerier, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END), 0)
		FROM ledger_entries WHERE account_id = $1`,
		accountID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("ledgerBalance: %w", err)
	}
	return balance, nil
}

// GetByAccountID returns the account's entries in insertion order (oldest
// first), the order statements are rendered in.
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_id = $1 ORDER BY seq LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByAccountID: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: rows: %w", err)
	}
	return entries, total, nil
}

func (r *LedgerRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE transaction_id = $1 ORDER BY seq`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByTransactionID: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByTransactionID: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByTransactionID: rows: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.EntryType, &e.Amount, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MapLedgerError converts the immutability trigger's error into the domain
// sentinel so callers see the defect loudly and uniformly.
func MapLedgerError(err error) error {
	if isPQCode(err, pqRestrictViolation) {
		return fmt.Errorf("%w: %w", domain.ErrLedgerImmutable, err)
	}
	return err
}
