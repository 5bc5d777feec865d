package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/logging"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/service/transfer"
)

type transferService interface {
	SubmitTransfer(ctx context.Context, req transfer.TransferRequest) (domain.TransferResult, error)
	Deposit(ctx context.Context, req transfer.DepositRequest) (domain.TransferResult, error)
	ReverseTransfer(ctx context.Context, transactionID uuid.UUID, reason string) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetTransactionByKey(ctx context.Context, key string) (*domain.Transaction, error)
	GetTransactionEntries(ctx context.Context, id uuid.UUID) ([]domain.LedgerEntry, error)
}

type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type createTransferRequest struct {
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      int64  `json:"amount"`
}

func (r createTransferRequest) Validate() []FieldError {
	var errs []FieldError

	if r.FromAccount == "" {
		errs = append(errs, FieldError{Field: "from_account", Message: "required"})
	} else if _, err := uuid.Parse(r.FromAccount); err != nil {
		errs = append(errs, FieldError{Field: "from_account", Message: "must be a valid account id"})
	}

	if r.ToAccount == "" {
		errs = append(errs, FieldError{Field: "to_account", Message: "required"})
	} else if _, err := uuid.Parse(r.ToAccount); err != nil {
		errs = append(errs, FieldError{Field: "to_account", Message: "must be a valid account id"})
	}

	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	return errs
}

type transactionDTO struct {
	ID             uuid.UUID  `json:"id"`
	FromAccountID  uuid.UUID  `json:"from_account_id"`
	ToAccountID    uuid.UUID  `json:"to_account_id"`
	Amount         int64      `json:"amount"`
	Status         string     `json:"status"`
	IdempotencyKey string     `json:"idempotency_key"`
	FailureReason  *string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:             t.ID,
		FromAccountID:  t.FromAccountID,
		ToAccountID:    t.ToAccountID,
		Amount:         t.Amount,
		Status:         string(t.Status),
		IdempotencyKey: t.IdempotencyKey,
		FailureReason:  t.FailureReason,
		CreatedAt:      t.CreatedAt,
		CompletedAt:    t.CompletedAt,
	}
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		RespondAppError(w, ErrMissingIdempotencyKey, nil)
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := h.transfers.SubmitTransfer(r.Context(), transfer.TransferRequest{
		FromAccountID:  uuid.MustParse(req.FromAccount),
		ToAccountID:    uuid.MustParse(req.ToAccount),
		Amount:         req.Amount,
		IdempotencyKey: idempotencyKey,
		RequestedBy:    actorID(r),
	})
	if err != nil {
		log.Error("transfer submission failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	respondTransferResult(w, result)
}

func (h *TransferHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		RespondAppError(w, ErrMissingIdempotencyKey, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrAccountNotFound, nil)
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Amount <= 0 {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be greater than 0"}})
		return
	}

	result, err := h.transfers.Deposit(r.Context(), transfer.DepositRequest{
		AccountID:      accountID,
		Amount:         req.Amount,
		IdempotencyKey: idempotencyKey,
		RequestedBy:    actorID(r),
	})
	if err != nil {
		log.Error("deposit failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	respondTransferResult(w, result)
}

func (h *TransferHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrTransactionNotFound, nil)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Reason == "" {
		req.Reason = "reversed by operator"
	}

	txn, err := h.transfers.ReverseTransfer(r.Context(), transactionID, req.Reason)
	if err != nil {
		log.Warn("reversal failed", "transaction_id", transactionID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(txn))
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrTransactionNotFound, nil)
		return
	}

	txn, err := h.transfers.GetTransaction(r.Context(), transactionID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	entries, err := h.transfers.GetTransactionEntries(r.Context(), transactionID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]ledgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toLedgerEntryDTO(e))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"transaction": toTransactionDTO(txn),
		"entries":     dtos,
	})
}

// GetByKey looks a transaction up by its idempotency key, so callers that
// lost the response to a submission can recover the outcome.
func (h *TransferHandler) GetByKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("idempotency_key")
	if key == "" {
		RespondValidationError(w, []FieldError{{Field: "idempotency_key", Message: "required"}})
		return
	}

	txn, err := h.transfers.GetTransactionByKey(r.Context(), key)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(txn))
}

// respondTransferResult maps the engine's closed outcome set onto HTTP. A
// replayed completed transfer answers 200 rather than 201 so callers can
// distinguish first processing from replay.
func respondTransferResult(w http.ResponseWriter, result domain.TransferResult) {
	switch result.Outcome {
	case domain.TransferOutcomeCompleted:
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		if result.Transaction != nil {
			w.Header().Set("Location", fmt.Sprintf("/api/v1/transactions/%s", result.Transaction.ID))
		}
		RespondSuccess(w, status, toTransactionDTO(result.Transaction))
	case domain.TransferOutcomeInProgress:
		RespondSuccess(w, http.StatusAccepted, map[string]string{"message": result.Reason})
	case domain.TransferOutcomeRetryable:
		RespondJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Error:   &APIError{Code: "TRANSFER_RETRYABLE", Message: result.Reason},
		})
	case domain.TransferOutcomePermanent:
		RespondJSON(w, http.StatusConflict, APIResponse{
			Success: false,
			Error:   &APIError{Code: "TRANSFER_PERMANENT_FAILURE", Message: result.Reason},
		})
	case domain.TransferOutcomeRejected:
		RespondDomainError(w, result.Err)
	default:
		RespondAppError(w, ErrInternalError, nil)
	}
}

// actorID reads the caller identity forwarded by the authenticating layer.
func actorID(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(r.Header.Get("X-Actor-ID"))
	if err != nil {
		return uuid.Nil
	}
	return id
}
