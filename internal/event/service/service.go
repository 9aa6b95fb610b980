package service

import (
	"context"
	"errors"
	"log/slog"

	"eventdesk/internal/event/models"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/clock"
	"eventdesk/pkg/platform/sentinel"
)

type Store interface {
	Save(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
}

// Service manages the event records that registrations and check-ins read.
type Service struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, clock: clock.NewSystem(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new draft event.
func (s *Service) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	req.Normalize()
	e, err := req.ToEvent()
	if err != nil {
		return nil, err
	}
	e.ID = id.NewEventID()
	e.CreatedAt = s.clock.Now()
	if err := s.store.Save(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	s.logger.InfoContext(ctx, "event created", "event_id", e.ID.String())
	return e, nil
}

func (s *Service) Get(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	e, err := s.store.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return e, nil
}

// Publish opens a draft event for registration and check-in.
func (s *Service) Publish(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.transition(ctx, eventID, models.StatusPublished, models.StatusDraft)
}

// Cancel closes a draft or published event.
func (s *Service) Cancel(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.transition(ctx, eventID, models.StatusCancelled, models.StatusDraft, models.StatusPublished)
}

// Complete marks a published event as finished.
func (s *Service) Complete(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.transition(ctx, eventID, models.StatusCompleted, models.StatusPublished)
}

func (s *Service) transition(ctx context.Context, eventID id.EventID, to models.Status, from ...models.Status) (*models.Event, error) {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status == to {
		return e, nil
	}
	allowed := false
	for _, st := range from {
		if e.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeInvalidState, "event cannot move from "+string(e.Status)+" to "+string(to))
	}
	e.Status = to
	if err := s.store.Save(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update event")
	}
	s.logger.InfoContext(ctx, "event status changed",
		"event_id", e.ID.String(),
		"status", string(to),
	)
	return e, nil
}
