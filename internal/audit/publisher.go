package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"eventdesk/pkg/platform/clock"
	"eventdesk/pkg/requestcontext"
)

const DefaultBufferSize = 1024

// Publisher enqueues audit events for the Worker. Emit never blocks the
// request path; when the buffer is full the event is dropped and counted.
type Publisher struct {
	inbox   chan Event
	clock   clock.Clock
	logger  *slog.Logger
	dropped atomic.Int64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewPublisher(bufferSize int, clk clock.Clock, logger *slog.Logger) *Publisher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{inbox: make(chan Event, bufferSize), clock: clk, logger: logger}
}

// Emit stamps request metadata onto event and queues it.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(ctx, event)
		return
	}
	select {
	case p.inbox <- event:
	default:
		p.drop(ctx, event)
	}
}

func (p *Publisher) drop(ctx context.Context, event Event) {
	p.dropped.Add(1)
	p.logger.WarnContext(ctx, "audit event dropped",
		"action", string(event.Action),
		"registration_id", event.RegistrationID,
		"request_id", event.RequestID,
	)
}

// Inbox is the channel the Worker drains.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Dropped reports how many events were discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events and closes the inbox so the Worker can drain it.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
	})
}
