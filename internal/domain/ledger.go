package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

func (t EntryType) IsValid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

// LedgerEntry is an immutable record of a single debit or credit against one
// account, tied to one transaction. Once written it is never updated or
// deleted; the store rejects mutation attempts with ErrLedgerImmutable.
type LedgerEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	EntryType     EntryType
	Amount        int64
	CreatedAt     time.Time
}

func (e *LedgerEntry) Validate() error {
	if e.AccountID == uuid.Nil {
		return fmt.Errorf("ledger entry: account reference: %w", ErrInvalidEntry)
	}
	if e.TransactionID == uuid.Nil {
		return fmt.Errorf("ledger entry: transaction reference: %w", ErrInvalidEntry)
	}
	if e.Amount < 0 {
		return fmt.Errorf("ledger entry: negative amount %d: %w", e.Amount, ErrInvalidEntry)
	}
	if !e.EntryType.IsValid() {
		return fmt.Errorf("ledger entry: type %q: %w", e.EntryType, ErrInvalidEntry)
	}
	return nil
}
