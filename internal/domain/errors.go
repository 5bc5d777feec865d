package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrAccountNotFound         = errors.New("account not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrAccountFrozen           = errors.New("account frozen")
	ErrAccountClosed           = errors.New("account closed")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrSelfTransfer            = errors.New("cannot transfer to same account")
	ErrCurrencyMismatch        = errors.New("currency mismatch")
	ErrMissingIdempotencyKey   = errors.New("idempotency key is required")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrInvalidEntry            = errors.New("invalid ledger entry")
	ErrLedgerImmutable         = errors.New("ledger entries cannot be modified once created")
	ErrInvalidTransition       = errors.New("illegal status transition")
	ErrInvalidRequest          = errors.New("invalid request")
)

// InsufficientFundsError carries the balance computed at rejection time so the
// caller can decide whether to retry.
type InsufficientFundsError struct {
	AccountID uuid.UUID
	Balance   int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s has %d, requested %d", e.AccountID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
