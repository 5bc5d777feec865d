package transfer

import (
	"context"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

type DepositRequest struct {
	AccountID      uuid.UUID
	Amount         int64
	IdempotencyKey string
	RequestedBy    uuid.UUID
}

// Deposit credits an account with initial funds from the treasury. It runs
// through the same state machine and atomic commit unit as a regular
// transfer; the treasury account is exempt from the sufficiency gate.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (domain.TransferResult, error) {
	return s.SubmitTransfer(ctx, TransferRequest{
		FromAccountID:  TreasuryAccountID,
		ToAccountID:    req.AccountID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		RequestedBy:    req.RequestedBy,
	})
}
