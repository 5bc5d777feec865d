package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/logging"
)

type accountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error
}

// AccountService covers the account lifecycle: opening, listing, freezing and
// closing. Money movement lives in the transfer service.
type AccountService struct {
	accounts accountStore
}

func NewAccountService(accounts accountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) OpenAccount(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Account, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("OpenAccount: user: %w", domain.ErrInvalidRequest)
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("OpenAccount: currency %q: %w", currency, domain.ErrInvalidRequest)
	}

	account := &domain.Account{
		ID:          uuid.New(),
		UserID:      userID,
		AccountType: domain.AccountTypeUser,
		Currency:    currency,
		Status:      domain.AccountStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account opened",
		"account_id", account.ID, "user_id", userID, "currency", currency)
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

// SetStatus freezes, reactivates or closes an account. Closed is terminal:
// accounts are never deleted and a closed account stays closed.
func (s *AccountService) SetStatus(ctx context.Context, accountID uuid.UUID, status domain.AccountStatus) (*domain.Account, error) {
	switch status {
	case domain.AccountStatusActive, domain.AccountStatusFrozen, domain.AccountStatusClosed:
	default:
		return nil, fmt.Errorf("SetStatus: status %q: %w", status, domain.ErrInvalidRequest)
	}

	current, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("SetStatus: %w", err)
	}
	if current.Status == domain.AccountStatusClosed {
		return nil, fmt.Errorf("SetStatus: account %s: %w", accountID, domain.ErrAccountClosed)
	}

	if err := s.accounts.UpdateStatus(ctx, accountID, status); err != nil {
		return nil, fmt.Errorf("SetStatus: %w", err)
	}
	current.Status = status

	logging.FromContext(ctx).Info("account status changed",
		"account_id", accountID, "status", status)
	return current, nil
}
