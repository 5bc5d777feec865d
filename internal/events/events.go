package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

const (
	TypeTransactionCompleted = "transaction.completed"
	TypeTransactionReversed  = "transaction.reversed"
)

// TransactionEvent is the payload published after a transaction reaches a
// terminal status. Publishing is post-commit and best-effort; it never
// changes the stored transaction.
type TransactionEvent struct {
	Type          string    `json:"type"`
	TransactionID uuid.UUID `json:"transaction_id"`
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewTransactionEvent(eventType string, t *domain.Transaction) TransactionEvent {
	return TransactionEvent{
		Type:          eventType,
		TransactionID: t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount,
		Status:        string(t.Status),
		OccurredAt:    time.Now().UTC(),
	}
}
