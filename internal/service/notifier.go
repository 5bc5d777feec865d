package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

// EmailSender delivers a single message. Delivery guarantees belong to the
// implementation; the engine only requires that failures never reach back
// into a committed transfer.
type EmailSender interface {
	Send(to, subject, body string) error
}

type notification struct {
	recipient string
	subject   string
	body      string
	queuedAt  time.Time
}

// Notifier dispatches transfer notifications on a bounded queue drained by a
// fixed worker pool. Enqueueing never blocks the caller: when the queue is
// full the notification is dropped and logged.
type Notifier struct {
	sender   EmailSender
	queue    chan notification
	shutdown chan struct{}
	wg       sync.WaitGroup
	logger   *slog.Logger
}

func NewNotifier(sender EmailSender, workers, queueSize int, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	n := &Notifier{
		sender:   sender,
		queue:    make(chan notification, queueSize),
		shutdown: make(chan struct{}),
		logger:   logger,
	}

	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}

	return n
}

// TransferCompleted queues counterparty notifications for a committed
// transfer. Fire-and-forget: the transfer's terminal status is already
// durable before this is called.
func (n *Notifier) TransferCompleted(t *domain.Transaction) {
	amount := formatMinorUnits(t.Amount)
	n.enqueue(notification{
		recipient: t.FromAccountID.String(),
		subject:   "Transfer completed",
		body:      fmt.Sprintf("Your transfer of %s has been completed successfully.", amount),
		queuedAt:  time.Now(),
	})
	n.enqueue(notification{
		recipient: t.ToAccountID.String(),
		subject:   "Funds received",
		body:      fmt.Sprintf("You have received %s.", amount),
		queuedAt:  time.Now(),
	})
}

func (n *Notifier) TransferReversed(t *domain.Transaction) {
	amount := formatMinorUnits(t.Amount)
	n.enqueue(notification{
		recipient: t.FromAccountID.String(),
		subject:   "Transfer reversed",
		body:      fmt.Sprintf("Your transfer of %s has been reversed and the funds returned.", amount),
		queuedAt:  time.Now(),
	})
}

func (n *Notifier) enqueue(msg notification) {
	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("notification queue full, dropping",
			"recipient", msg.recipient,
			"subject", msg.subject,
		)
	}
}

func (n *Notifier) worker(id int) {
	defer n.wg.Done()

	for {
		select {
		case msg := <-n.queue:
			if err := n.sender.Send(msg.recipient, msg.subject, msg.body); err != nil {
				n.logger.Error("failed to send notification",
					"recipient", msg.recipient,
					"subject", msg.subject,
					"error", err,
					"worker_id", id,
				)
				continue
			}
			n.logger.Debug("notification sent",
				"recipient", msg.recipient,
				"subject", msg.subject,
				"queue_delay_ms", time.Since(msg.queuedAt).Milliseconds(),
				"worker_id", id,
			)
		case <-n.shutdown:
			return
		}
	}
}

// Shutdown stops the workers. Queued but undelivered notifications are
// dropped; the engine has no delivery guarantee to uphold.
func (n *Notifier) Shutdown(ctx context.Context) error {
	close(n.shutdown)

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Amounts are stored as integers in the smallest currency unit; render with
// two decimal places for humans.
func formatMinorUnits(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// LogEmailSender writes notifications to the log. Real delivery is the
// calling platform's concern.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s *LogEmailSender) Send(to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email notification", "to", to, "subject", subject, "body", body)
	return nil
}
