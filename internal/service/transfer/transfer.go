package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/events"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/logging"
)

type TransferRequest struct {
	FromAccountID  uuid.UUID
	ToAccountID    uuid.UUID
	Amount         int64
	IdempotencyKey string
	// RequestedBy identifies the caller for the audit log; authorization is
	// the calling layer's responsibility.
	RequestedBy uuid.UUID
}

// SubmitTransfer runs the transfer state machine: structural validation,
// idempotency check, account checks, then the atomic commit unit. Everything
// up to the commit unit rejects before any durable write. The returned error
// is non-nil only for storage failures outside the mapped outcomes.
func (s *Service) SubmitTransfer(ctx context.Context, req TransferRequest) (domain.TransferResult, error) {
	start := time.Now()

	result, err := s.submitTransfer(ctx, req)
	if err != nil {
		return domain.TransferResult{}, err
	}

	s.metrics.ObserveTransfer(result.Outcome, time.Since(start))
	if result.Outcome == domain.TransferOutcomeRejected {
		logging.FromContext(ctx).Warn("transfer rejected",
			"reason", result.Err, "requested_by", req.RequestedBy)
	}
	return result, nil
}

func (s *Service) submitTransfer(ctx context.Context, req TransferRequest) (domain.TransferResult, error) {
	if err := validateRequest(req); err != nil {
		return domain.RejectedTransfer(err), nil
	}

	// Fast-path replay check. The unique index in executeTransfer remains the
	// authoritative guard for keys racing past this read.
	existing, err := s.transactions.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.TransferResult{}, fmt.Errorf("submitTransfer: %w", err)
	}
	if existing != nil {
		return domain.ResultForExisting(existing), nil
	}

	from, err := s.accounts.GetByID(ctx, req.FromAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.RejectedTransfer(fmt.Errorf("source: %w", domain.ErrAccountNotFound)), nil
		}
		return domain.TransferResult{}, fmt.Errorf("submitTransfer: %w", err)
	}
	to, err := s.accounts.GetByID(ctx, req.ToAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.RejectedTransfer(fmt.Errorf("destination: %w", domain.ErrAccountNotFound)), nil
		}
		return domain.TransferResult{}, fmt.Errorf("submitTransfer: %w", err)
	}

	if err := verifyAccountActive(from, "source"); err != nil {
		return domain.RejectedTransfer(err), nil
	}
	if err := verifyAccountActive(to, "destination"); err != nil {
		return domain.RejectedTransfer(err), nil
	}
	// The treasury mints deposits in the recipient's currency, so it is
	// exempt from the match.
	if from.AccountType != domain.AccountTypeTreasury && from.Currency != to.Currency {
		return domain.RejectedTransfer(domain.ErrCurrencyMismatch), nil
	}

	txn, err := s.executeTransfer(ctx, req)
	if err != nil {
		return s.mapExecuteError(ctx, req, err)
	}

	logging.FromContext(ctx).Info("transfer completed",
		"transaction_id", txn.ID,
		"from_account", req.FromAccountID,
		"to_account", req.ToAccountID,
		"amount", req.Amount,
		"requested_by", req.RequestedBy,
	)

	s.dispatchPostCommit(ctx, txn)
	return domain.CompletedTransfer(txn), nil
}

func validateRequest(req TransferRequest) error {
	if req.FromAccountID == uuid.Nil {
		return fmt.Errorf("fromAccount: %w", domain.ErrInvalidRequest)
	}
	if req.ToAccountID == uuid.Nil {
		return fmt.Errorf("toAccount: %w", domain.ErrInvalidRequest)
	}
	if req.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if req.IdempotencyKey == "" {
		return domain.ErrMissingIdempotencyKey
	}
	if req.FromAccountID == req.ToAccountID {
		return domain.ErrSelfTransfer
	}
	return nil
}

func verifyAccountActive(acct *domain.Account, role string) error {
	switch acct.Status {
	case domain.AccountStatusActive:
		return nil
	case domain.AccountStatusFrozen:
		return fmt.Errorf("%s: %w", role, domain.ErrAccountFrozen)
	default:
		return fmt.Errorf("%s: %w", role, domain.ErrAccountClosed)
	}
}

// executeTransfer is the atomic commit unit. Both account rows are locked in
// deterministic order before the balance is derived, so two transfers
// touching the same account serialize and the sufficiency check cannot be
// invalidated between read and write. Either the transaction record and both
// ledger entries become durable together, or none of them do.
func (s *Service) executeTransfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	from, to := locked[req.FromAccountID], locked[req.ToAccountID]

	// The PENDING insert comes before every business gate: the unique index on
	// idempotency_key is the arbiter between racing submissions, and a loser
	// that parked on the row locks must exit through the key conflict and
	// replay the stored outcome, not through a gate re-evaluated against the
	// winner's committed state.
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:             uuid.New(),
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         req.Amount,
		Status:         domain.TransactionStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("executeTransfer: create transaction: %w", err)
	}

	// Status may have changed since the pre-lock check.
	if err := verifyAccountActive(from, "source"); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	if err := verifyAccountActive(to, "destination"); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	if from.AccountType != domain.AccountTypeTreasury {
		balance, err := s.ledger.BalanceInTx(ctx, tx, from.ID)
		if err != nil {
			return nil, fmt.Errorf("executeTransfer: %w", err)
		}
		if balance < req.Amount {
			return nil, &domain.InsufficientFundsError{
				AccountID: from.ID,
				Balance:   balance,
				Requested: req.Amount,
			}
		}
	}

	debit := &domain.LedgerEntry{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		AccountID:     req.FromAccountID,
		EntryType:     domain.EntryTypeDebit,
		Amount:        req.Amount,
		CreatedAt:     now,
	}
	if err := s.ledger.Create(ctx, tx, debit); err != nil {
		return nil, fmt.Errorf("executeTransfer: debit entry: %w", err)
	}

	credit := &domain.LedgerEntry{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		AccountID:     req.ToAccountID,
		EntryType:     domain.EntryTypeCredit,
		Amount:        req.Amount,
		CreatedAt:     now,
	}
	if err := s.ledger.Create(ctx, tx, credit); err != nil {
		return nil, fmt.Errorf("executeTransfer: credit entry: %w", err)
	}

	if err := txn.TransitionTo(domain.TransactionStatusCompleted); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	if err := s.transactions.UpdateStatus(ctx, tx, txn.ID, domain.TransactionStatusCompleted, nil, &now); err != nil {
		return nil, fmt.Errorf("executeTransfer: complete transaction: %w", err)
	}
	txn.CompletedAt = &now
	txn.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeTransfer: commit: %w", err)
	}

	s.metrics.LedgerEntriesAppended(2)
	return txn, nil
}

// mapExecuteError turns commit-unit failures into caller outcomes. Nothing
// partial persists on any of these paths, so retrying with the same key is
// always safe.
func (s *Service) mapExecuteError(ctx context.Context, req TransferRequest, err error) (domain.TransferResult, error) {
	log := logging.FromContext(ctx)

	switch {
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		// Lost the insert race to a concurrent submission of the same key.
		// Resolved internally: report the stored record's outcome.
		existing, lookupErr := s.transactions.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if lookupErr != nil {
			return domain.TransferResult{}, fmt.Errorf("mapExecuteError: %w", lookupErr)
		}
		return domain.ResultForExisting(existing), nil
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountFrozen),
		errors.Is(err, domain.ErrAccountClosed):
		return domain.RejectedTransfer(err), nil
	default:
		log.Error("transfer commit failed", "error", err, "idempotency_key", req.IdempotencyKey)
		return domain.RetryableTransferFailure(nil, "transfer could not be committed; retry with the same idempotency key"), nil
	}
}

func (s *Service) dispatchPostCommit(ctx context.Context, txn *domain.Transaction) {
	if s.notifier != nil {
		s.notifier.TransferCompleted(txn)
	}
	s.publishEvent(ctx, events.TypeTransactionCompleted, txn)
}

// publishEvent emits a terminal-status event detached from the request
// lifetime: the commit already happened, publish failures are logged only.
func (s *Service) publishEvent(ctx context.Context, eventType string, txn *domain.Transaction) {
	if s.events == nil {
		return
	}
	log := logging.FromContext(ctx)
	go func(event events.TransactionEvent) {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(pubCtx, event); err != nil {
			log.Error("failed to publish transaction event",
				"transaction_id", event.TransactionID, "error", err)
		}
	}(events.NewTransactionEvent(eventType, txn))
}

// lockAccountsInOrder takes FOR UPDATE locks on the given accounts sorted by
// id, so concurrent transfers over the same pair cannot deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountRepo, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}
