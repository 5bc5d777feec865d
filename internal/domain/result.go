package domain

type TransferOutcome string

const (
	TransferOutcomeCompleted  TransferOutcome = "completed"
	TransferOutcomeInProgress TransferOutcome = "in_progress"
	TransferOutcomeRetryable  TransferOutcome = "retryable_failure"
	TransferOutcomePermanent  TransferOutcome = "permanent_failure"
	TransferOutcomeRejected   TransferOutcome = "rejected"
)

// TransferResult is the closed outcome type returned to the calling layer.
// Exactly one of Transaction, Reason or Err is meaningful per outcome.
// Replayed marks outcomes served from a previously stored transaction.
type TransferResult struct {
	Outcome     TransferOutcome
	Transaction *Transaction
	Reason      string
	Err         error
	Replayed    bool
}

func CompletedTransfer(t *Transaction) TransferResult {
	return TransferResult{Outcome: TransferOutcomeCompleted, Transaction: t}
}

func TransferInProgress(t *Transaction) TransferResult {
	return TransferResult{Outcome: TransferOutcomeInProgress, Transaction: t, Reason: "transfer is in progress, poll again later"}
}

func RetryableTransferFailure(t *Transaction, reason string) TransferResult {
	return TransferResult{Outcome: TransferOutcomeRetryable, Transaction: t, Reason: reason}
}

func PermanentTransferFailure(t *Transaction, reason string) TransferResult {
	return TransferResult{Outcome: TransferOutcomePermanent, Transaction: t, Reason: reason}
}

func RejectedTransfer(err error) TransferResult {
	return TransferResult{Outcome: TransferOutcomeRejected, Err: err}
}

// ResultForExisting maps the stored status of a previously seen idempotency
// key to the outcome the caller observes on replay. Replays never re-execute
// the transfer.
func ResultForExisting(t *Transaction) TransferResult {
	var result TransferResult
	switch t.Status {
	case TransactionStatusCompleted:
		result = CompletedTransfer(t)
	case TransactionStatusPending:
		result = TransferInProgress(t)
	case TransactionStatusFailed:
		result = RetryableTransferFailure(t, "previous attempt failed, retry after some time")
	case TransactionStatusReversed:
		result = PermanentTransferFailure(t, "transfer was reversed, resubmit with a new idempotency key")
	default:
		result = RetryableTransferFailure(t, "transfer is in an unknown state")
	}
	result.Replayed = true
	return result
}
