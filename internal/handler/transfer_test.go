package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/service/transfer"
)

type stubTransferService struct {
	submitResult domain.TransferResult
	submitErr    error
	reverseTxn   *domain.Transaction
	reverseErr   error
	lastRequest  transfer.TransferRequest
}

func (s *stubTransferService) SubmitTransfer(ctx context.Context, req transfer.TransferRequest) (domain.TransferResult, error) {
	s.lastRequest = req
	return s.submitResult, s.submitErr
}

func (s *stubTransferService) Deposit(ctx context.Context, req transfer.DepositRequest) (domain.TransferResult, error) {
	return s.submitResult, s.submitErr
}

func (s *stubTransferService) ReverseTransfer(ctx context.Context, transactionID uuid.UUID, reason string) (*domain.Transaction, error) {
	return s.reverseTxn, s.reverseErr
}

func (s *stubTransferService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if s.reverseTxn != nil && s.reverseTxn.ID == id {
		return s.reverseTxn, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (s *stubTransferService) GetTransactionByKey(ctx context.Context, key string) (*domain.Transaction, error) {
	if s.reverseTxn != nil && s.reverseTxn.IdempotencyKey == key {
		return s.reverseTxn, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubTransferService) GetTransactionEntries(ctx context.Context, id uuid.UUID) ([]domain.LedgerEntry, error) {
	return []domain.LedgerEntry{
		{ID: uuid.New(), TransactionID: id, AccountID: uuid.New(), EntryType: domain.EntryTypeDebit, Amount: 300},
		{ID: uuid.New(), TransactionID: id, AccountID: uuid.New(), EntryType: domain.EntryTypeCredit, Amount: 300},
	}, nil
}

func completedTransaction() *domain.Transaction {
	now := time.Now().UTC()
	return &domain.Transaction{
		ID:             uuid.New(),
		FromAccountID:  uuid.New(),
		ToAccountID:    uuid.New(),
		Amount:         300,
		Status:         domain.TransactionStatusCompleted,
		IdempotencyKey: "k1",
		CreatedAt:      now,
		UpdatedAt:      now,
		CompletedAt:    &now,
	}
}

func postTransfer(t *testing.T, h *TransferHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestTransferCreate(t *testing.T) {
	txn := completedTransaction()
	validBody := fmt.Sprintf(`{"from_account":%q,"to_account":%q,"amount":300}`,
		txn.FromAccountID, txn.ToAccountID)

	t.Run("fresh completion answers 201 with a location header", func(t *testing.T) {
		stub := &stubTransferService{submitResult: domain.CompletedTransfer(txn)}
		h := NewTransferHandler(stub)

		rec := postTransfer(t, h, validBody, map[string]string{"Idempotency-Key": "k1"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/api/v1/transactions/"+txn.ID.String(), rec.Header().Get("Location"))
		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, "k1", stub.lastRequest.IdempotencyKey)
	})

	t.Run("replay answers 200", func(t *testing.T) {
		stub := &stubTransferService{submitResult: domain.ResultForExisting(txn)}
		h := NewTransferHandler(stub)

		rec := postTransfer(t, h, validBody, map[string]string{"Idempotency-Key": "k1"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeResponse(t, rec).Success)
	})

	t.Run("pending replay answers 202", func(t *testing.T) {
		pending := completedTransaction()
		pending.Status = domain.TransactionStatusPending
		stub := &stubTransferService{submitResult: domain.ResultForExisting(pending)}
		h := NewTransferHandler(stub)

		rec := postTransfer(t, h, validBody, map[string]string{"Idempotency-Key": "k1"})

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("missing idempotency key answers 400", func(t *testing.T) {
		h := NewTransferHandler(&stubTransferService{})

		rec := postTransfer(t, h, validBody, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrMissingIdempotencyKey.Code, resp.Error.Code)
	})

	t.Run("malformed body answers 400", func(t *testing.T) {
		h := NewTransferHandler(&stubTransferService{})

		rec := postTransfer(t, h, `{not json`, map[string]string{"Idempotency-Key": "k1"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("field validation failures answer 400 with details", func(t *testing.T) {
		h := NewTransferHandler(&stubTransferService{})

		rec := postTransfer(t, h, `{"from_account":"nope","amount":0}`,
			map[string]string{"Idempotency-Key": "k1"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrValidationFailed.Code, resp.Error.Code)
		assert.NotNil(t, resp.Error.Details)
	})

	t.Run("insufficient funds rejection answers 422 with balance details", func(t *testing.T) {
		stub := &stubTransferService{
			submitResult: domain.RejectedTransfer(&domain.InsufficientFundsError{
				AccountID: uuid.New(),
				Balance:   100,
				Requested: 300,
			}),
		}
		h := NewTransferHandler(stub)

		rec := postTransfer(t, h, validBody, map[string]string{"Idempotency-Key": "k1"})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrInsufficientFunds.Code, resp.Error.Code)

		details, ok := resp.Error.Details.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(100), details["current_balance"])
		assert.Equal(t, float64(300), details["requested"])
	})

	t.Run("retryable failure answers 503", func(t *testing.T) {
		stub := &stubTransferService{
			submitResult: domain.RetryableTransferFailure(nil, "try again"),
		}
		h := NewTransferHandler(stub)

		rec := postTransfer(t, h, validBody, map[string]string{"Idempotency-Key": "k1"})

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "TRANSFER_RETRYABLE", resp.Error.Code)
	})
}

func TestTransferGetByKey(t *testing.T) {
	txn := completedTransaction()
	h := NewTransferHandler(&stubTransferService{reverseTxn: txn})

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?idempotency_key=k1", nil)
		rec := httptest.NewRecorder()
		h.GetByKey(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown key answers 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?idempotency_key=other", nil)
		rec := httptest.NewRecorder()
		h.GetByKey(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing key answers 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
		rec := httptest.NewRecorder()
		h.GetByKey(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTransferReverse(t *testing.T) {
	t.Run("reversal answers 200", func(t *testing.T) {
		txn := completedTransaction()
		txn.Status = domain.TransactionStatusReversed
		h := NewTransferHandler(&stubTransferService{reverseTxn: txn})

		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/transactions/"+txn.ID.String()+"/reverse",
			bytes.NewBufferString(`{"reason":"dispute"}`))
		req.SetPathValue("id", txn.ID.String())
		rec := httptest.NewRecorder()
		h.Reverse(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-reversible transaction answers 409", func(t *testing.T) {
		h := NewTransferHandler(&stubTransferService{
			reverseErr: fmt.Errorf("ReverseTransfer: %w", domain.ErrInvalidTransition),
		})

		id := uuid.New()
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/transactions/"+id.String()+"/reverse",
			bytes.NewBufferString(`{}`))
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Reverse(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrTransferNotReversible.Code, resp.Error.Code)
	})
}

func TestTransferGet(t *testing.T) {
	txn := completedTransaction()
	h := NewTransferHandler(&stubTransferService{reverseTxn: txn})

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+txn.ID.String(), nil)
		req.SetPathValue("id", txn.ID.String())
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown id answers 404", func(t *testing.T) {
		id := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+id.String(), nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
