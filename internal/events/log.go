package events

import (
	"context"
	"log/slog"
)

// LogPublisher stands in when no broker is configured. Every event is still
// observable through the structured log stream.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event TransactionEvent) error {
	p.logger.Info("transaction event",
		"type", event.Type,
		"transaction_id", event.TransactionID,
		"from_account", event.FromAccountID,
		"to_account", event.ToAccountID,
		"amount", event.Amount,
		"status", event.Status,
	)
	return nil
}
