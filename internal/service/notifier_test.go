package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
	want int
}

func newRecordingSender(want int) *recordingSender {
	return &recordingSender{done: make(chan struct{}), want: want}
}

func (s *recordingSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, subject)
	if len(s.sent) == s.want {
		close(s.done)
	}
	return nil
}

func (s *recordingSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

func waitFor(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notifications")
	}
}

func testTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:            uuid.New(),
		FromAccountID: uuid.New(),
		ToAccountID:   uuid.New(),
		Amount:        12345,
	}
}

func TestNotifierTransferCompleted(t *testing.T) {
	sender := newRecordingSender(2)
	n := NewNotifier(sender, 2, 16, nil)
	defer n.Shutdown(context.Background())

	n.TransferCompleted(testTransaction())
	waitFor(t, sender.done)

	subjects := sender.subjects()
	assert.Contains(t, subjects, "Transfer completed")
	assert.Contains(t, subjects, "Funds received")
}

func TestNotifierTransferReversed(t *testing.T) {
	sender := newRecordingSender(1)
	n := NewNotifier(sender, 1, 16, nil)
	defer n.Shutdown(context.Background())

	n.TransferReversed(testTransaction())
	waitFor(t, sender.done)

	assert.Equal(t, []string{"Transfer reversed"}, sender.subjects())
}

func TestNotifierShutdown(t *testing.T) {
	sender := newRecordingSender(1)
	n := NewNotifier(sender, 4, 16, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Shutdown(ctx))
}

func TestNotifierFullQueueDoesNotBlock(t *testing.T) {
	// No workers draining relative to load: queue size 1, slow sender.
	block := make(chan struct{})
	n := NewNotifier(senderFunc(func() error { <-block; return nil }), 1, 1, nil)
	defer func() {
		close(block)
		n.Shutdown(context.Background())
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			n.TransferCompleted(testTransaction())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "123.45", formatMinorUnits(12345))
	assert.Equal(t, "0.05", formatMinorUnits(5))
	assert.Equal(t, "10.00", formatMinorUnits(1000))
}

type senderFunc func() error

func (f senderFunc) Send(to, subject, body string) error { return f() }
