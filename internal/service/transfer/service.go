package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/events"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/metrics"
)

// TreasuryAccountID is the seeded system account that funds deposits.
var TreasuryAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.TransactionStatus, failureReason *string, completedAt *time.Time) error
}

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
}

type ledgerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	BalanceInTx(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) (int64, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error)
}

type transferNotifier interface {
	TransferCompleted(t *domain.Transaction)
	TransferReversed(t *domain.Transaction)
}

// EventPublisher receives terminal-status events after commit. Implementations
// are best-effort; errors are logged, never propagated to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event events.TransactionEvent) error
}

type Service struct {
	transactions transactionRepo
	accounts     accountRepo
	ledger       ledgerRepo
	notifier     transferNotifier
	events       EventPublisher
	metrics      *metrics.Collector
	db           *sql.DB
}

func NewService(
	transactions transactionRepo,
	accounts accountRepo,
	ledger ledgerRepo,
	notifier transferNotifier,
	publisher EventPublisher,
	collector *metrics.Collector,
	db *sql.DB,
) *Service {
	return &Service{
		transactions: transactions,
		accounts:     accounts,
		ledger:       ledger,
		notifier:     notifier,
		events:       publisher,
		metrics:      collector,
		db:           db,
	}
}

// GetBalance derives the account's balance from its ledger entries.
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	balance, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	s.metrics.BalanceRead()
	return balance, nil
}

// GetStatement lists an account's ledger entries oldest first.
func (s *Service) GetStatement(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, 0, fmt.Errorf("GetStatement: %w", err)
	}
	entries, total, err := s.ledger.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("GetStatement: %w", err)
	}
	return entries, total, nil
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

// GetTransactionEntries returns the ledger entries written under a
// transaction: the original debit/credit pair, plus the compensating pair if
// the transaction was reversed.
func (s *Service) GetTransactionEntries(ctx context.Context, id uuid.UUID) ([]domain.LedgerEntry, error) {
	entries, err := s.ledger.GetByTransactionID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionEntries: %w", err)
	}
	return entries, nil
}

func (s *Service) GetTransactionByKey(ctx context.Context, key string) (*domain.Transaction, error) {
	t, err := s.transactions.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionByKey: %w", err)
	}
	return t, nil
}
