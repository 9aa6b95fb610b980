package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/audit"
	"eventdesk/internal/audit/store/memory"
	"eventdesk/pkg/platform/clock"
	"eventdesk/pkg/requestcontext"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPublisherStampsRequestMetadata(t *testing.T) {
	now := time.Date(2026, 11, 20, 17, 45, 0, 0, time.UTC)
	pub := audit.NewPublisher(4, clock.NewFixed(now), discard)

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.7", "scanner")
	ctx = requestcontext.WithDevice(ctx, "Chrome 120 / Android")
	pub.Emit(ctx, audit.Event{Action: audit.ActionCheckInCommitted, RegistrationID: "r1"})

	got := <-pub.Inbox()
	assert.Equal(t, now, got.Timestamp)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "10.0.0.7", got.ClientIP)
	assert.Equal(t, "Chrome 120 / Android", got.Device)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	pub := audit.NewPublisher(1, nil, discard)
	pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInRejected})
	pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInRejected})
	assert.Equal(t, int64(1), pub.Dropped())

	pub.Close()
	pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInRejected})
	assert.Equal(t, int64(2), pub.Dropped())
}

func TestWorkerDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(16, nil, discard)
	for range 10 {
		pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInCommitted, RegistrationID: "r1"})
	}
	pub.Close()

	w := audit.NewWorker(store, pub.Inbox(), discard)
	require.NoError(t, w.Run(context.Background()))

	events, err := store.ListByRegistration(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestWorkerFlushesBufferedEventsOnCancel(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(16, nil, discard)
	for range 3 {
		pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInUndone})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, audit.NewWorker(store, pub.Inbox(), discard).Run(ctx))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (f *failingStore) Append(context.Context, audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("broker unavailable")
}

func TestWorkerSurvivesSinkErrors(t *testing.T) {
	store := &failingStore{}
	pub := audit.NewPublisher(4, nil, discard)
	pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInFailed})
	pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInFailed})
	pub.Close()

	require.NoError(t, audit.NewWorker(store, pub.Inbox(), discard).Run(context.Background()))
	assert.Equal(t, 2, store.calls)
}
