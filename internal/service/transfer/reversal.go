package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/events"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/logging"
)

// ReverseTransfer returns the funds of a completed transfer by appending a
// compensating entry pair. The original entries are never touched; the
// transaction transitions COMPLETED -> REVERSED. A reversed key cannot be
// resubmitted, callers need a fresh idempotency key for a new attempt.
func (s *Service) ReverseTransfer(ctx context.Context, transactionID uuid.UUID, reason string) (*domain.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("ReverseTransfer: %w", err)
	}
	if !txn.Status.CanTransitionTo(domain.TransactionStatusReversed) {
		return nil, fmt.Errorf("ReverseTransfer: %s is %s: %w", txn.ID, txn.Status, domain.ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReverseTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, txn.FromAccountID, txn.ToAccountID)
	if err != nil {
		return nil, fmt.Errorf("ReverseTransfer: %w", err)
	}
	recipient := locked[txn.ToAccountID]

	// The recipient gives the funds back; a user account must be able to
	// afford that without going negative.
	if recipient.AccountType != domain.AccountTypeTreasury {
		balance, err := s.ledger.BalanceInTx(ctx, tx, recipient.ID)
		if err != nil {
			return nil, fmt.Errorf("ReverseTransfer: %w", err)
		}
		if balance < txn.Amount {
			return nil, &domain.InsufficientFundsError{
				AccountID: recipient.ID,
				Balance:   balance,
				Requested: txn.Amount,
			}
		}
	}

	now := time.Now().UTC()
	compensating := []*domain.LedgerEntry{
		{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			AccountID:     txn.ToAccountID,
			EntryType:     domain.EntryTypeDebit,
			Amount:        txn.Amount,
			CreatedAt:     now,
		},
		{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			AccountID:     txn.FromAccountID,
			EntryType:     domain.EntryTypeCredit,
			Amount:        txn.Amount,
			CreatedAt:     now,
		},
	}
	for _, entry := range compensating {
		if err := s.ledger.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("ReverseTransfer: %s entry: %w", entry.EntryType, err)
		}
	}

	if err := txn.TransitionTo(domain.TransactionStatusReversed); err != nil {
		return nil, fmt.Errorf("ReverseTransfer: %w", err)
	}
	if err := s.transactions.UpdateStatus(ctx, tx, txn.ID, domain.TransactionStatusReversed, &reason, txn.CompletedAt); err != nil {
		return nil, fmt.Errorf("ReverseTransfer: %w", err)
	}
	txn.FailureReason = &reason
	txn.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReverseTransfer: commit: %w", err)
	}

	s.metrics.LedgerEntriesAppended(len(compensating))

	logging.FromContext(ctx).Info("transfer reversed",
		"transaction_id", txn.ID, "amount", txn.Amount, "reason", reason)

	if s.notifier != nil {
		s.notifier.TransferReversed(txn)
	}
	s.publishEvent(ctx, events.TypeTransactionReversed, txn)

	return txn, nil
}
