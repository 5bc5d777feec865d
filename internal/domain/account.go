package domain

import (
	"time"

	"github.com/google/uuid"
)

type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyINR, CurrencyUSD, CurrencyEUR:
		return true
	default:
		return false
	}
}

type AccountType string

const (
	AccountTypeUser AccountType = "user"
	// Treasury accounts fund deposits and may run a negative derived balance.
	AccountTypeTreasury AccountType = "treasury"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Account carries no balance column. The balance of an account is always
// derived from its ledger entries.
type Account struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	AccountType AccountType
	Currency    Currency
	Status      AccountStatus
	CreatedAt   time.Time
}
