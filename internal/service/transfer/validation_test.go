package transfer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

func TestValidateRequest(t *testing.T) {
	from := uuid.New()
	to := uuid.New()

	tests := []struct {
		name    string
		req     TransferRequest
		wantErr error
	}{
		{
			name: "valid request",
			req:  TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 500, IdempotencyKey: "k1"},
		},
		{
			name:    "missing from account",
			req:     TransferRequest{ToAccountID: to, Amount: 500, IdempotencyKey: "k1"},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "missing to account",
			req:     TransferRequest{FromAccountID: from, Amount: 500, IdempotencyKey: "k1"},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "amount zero",
			req:     TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 0, IdempotencyKey: "k1"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "amount negative",
			req:     TransferRequest{FromAccountID: from, ToAccountID: to, Amount: -100, IdempotencyKey: "k1"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "missing idempotency key",
			req:     TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 500},
			wantErr: domain.ErrMissingIdempotencyKey,
		},
		{
			name:    "self transfer",
			req:     TransferRequest{FromAccountID: from, ToAccountID: from, Amount: 500, IdempotencyKey: "k1"},
			wantErr: domain.ErrSelfTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyAccountActive(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.AccountStatus
		wantErr error
	}{
		{"active", domain.AccountStatusActive, nil},
		{"frozen", domain.AccountStatusFrozen, domain.ErrAccountFrozen},
		{"closed", domain.AccountStatusClosed, domain.ErrAccountClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := &domain.Account{ID: uuid.New(), Status: tt.status}
			err := verifyAccountActive(acct, "source")
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
