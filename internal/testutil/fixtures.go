package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

var (
	SystemUserID      = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	TreasuryAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
)

// SeedTreasury inserts the system treasury account that funds deposits.
func SeedTreasury(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO accounts (id, user_id, account_type, currency, status, created_at)
		 VALUES ($1, $2, 'treasury', 'USD', 'active', $3)
		 ON CONFLICT (id) DO NOTHING`,
		TreasuryAccountID, SystemUserID, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed treasury account: %v", err)
	}
	return TreasuryAccountID
}

func SeedAccount(t *testing.T, db *sql.DB, currency string, status domain.AccountStatus) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		AccountType: domain.AccountTypeUser,
		Currency:    domain.Currency(currency),
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, user_id, account_type, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.UserID, a.AccountType, a.Currency, a.Status, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", a.ID, err)
	}
	return a
}

// SeedBalance funds an account by writing a completed funding transaction
// with its full debit/credit pair, so the derived balance and the
// double-entry invariant both hold for seeded data.
func SeedBalance(t *testing.T, db *sql.DB, accountID uuid.UUID, amount int64) {
	t.Helper()

	SeedTreasury(t, db)

	now := time.Now().UTC()
	txnID := uuid.New()
	_, err := db.Exec(
		`INSERT INTO transactions (id, from_account_id, to_account_id, amount, status, idempotency_key, created_at, updated_at, completed_at)
		 VALUES ($1, $2, $3, $4, 'completed', $5, $6, $6, $6)`,
		txnID, TreasuryAccountID, accountID, amount, "seed-"+uuid.NewString(), now,
	)
	if err != nil {
		t.Fatalf("seed funding transaction for %s: %v", accountID, err)
	}

	for _, e := range []struct {
		account   uuid.UUID
		entryType string
	}{
		{TreasuryAccountID, "debit"},
		{accountID, "credit"},
	} {
		_, err := db.Exec(
			`INSERT INTO ledger_entries (id, transaction_id, account_id, entry_type, amount, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), txnID, e.account, e.entryType, amount, now,
		)
		if err != nil {
			t.Fatalf("seed %s entry for %s: %v", e.entryType, e.account, err)
		}
	}
}

// LedgerBalance recomputes the derived balance straight from SQL, bypassing
// the repositories, for use in assertions.
func LedgerBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END), 0)
		 FROM ledger_entries WHERE account_id = $1`,
		accountID,
	).Scan(&balance)
	if err != nil {
		t.Fatalf("ledger balance %s: %v", accountID, err)
	}
	return balance
}

func CountLedgerEntries(t *testing.T, db *sql.DB, transactionID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_entries WHERE transaction_id = $1`, transactionID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for %s: %v", transactionID, err)
	}
	return count
}

func CountTransactions(t *testing.T, db *sql.DB, idempotencyKey string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE idempotency_key = $1`, idempotencyKey,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for key %s: %v", idempotencyKey, err)
	}
	return count
}
