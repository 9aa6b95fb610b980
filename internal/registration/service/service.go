package service

import (
	"context"
	"errors"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"eventdesk/internal/audit"
	eventmodels "eventdesk/internal/event/models"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/qrcode"
	"eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/clock"
	"eventdesk/pkg/platform/sentinel"
	"eventdesk/pkg/requestcontext"
)

// maxCodeAttempts bounds code generation, counting both pre-checks and
// insert collisions.
const maxCodeAttempts = 10

type Store interface {
	Create(ctx context.Context, r *models.Registration) error
	// Modify applies fn to the current row while holding it and persists
	// status and QR payload. An error from fn aborts the write.
	Modify(ctx context.Context, registrationID id.RegistrationID, fn func(*models.Registration) error) (*models.Registration, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	FindByCode(ctx context.Context, code string) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID id.EventID, scope models.Scope) ([]*models.Registration, error)
	CountConfirmed(ctx context.Context, eventID id.EventID) (int, error)
}

type EventReader interface {
	FindByID(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// CodeGenerator returns a candidate registration code.
type CodeGenerator func() (string, error)

// NanoidCodes draws CodeLength characters from CodeAlphabet.
func NanoidCodes() (string, error) {
	return gonanoid.Generate(models.CodeAlphabet, models.CodeLength)
}

// Service owns the registration lifecycle up to check-in.
type Service struct {
	store       Store
	events      EventReader
	codec       *qrcode.Codec
	clock       clock.Clock
	generate    CodeGenerator
	autoConfirm bool
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       AuditPublisher
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.generate = g
		}
	}
}

// WithAutoConfirm makes new registrations start confirmed instead of pending.
func WithAutoConfirm(enabled bool) Option {
	return func(s *Service) {
		s.autoConfirm = enabled
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func New(store Store, events EventReader, codec *qrcode.Codec, opts ...Option) *Service {
	s := &Service{
		store:    store,
		events:   events,
		codec:    codec,
		clock:    clock.NewSystem(),
		generate: NanoidCodes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateUniqueCode draws codes until one is not in use.
func (s *Service) GenerateUniqueCode(ctx context.Context) (string, error) {
	for range maxCodeAttempts {
		code, err := s.generate()
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate registration code")
		}
		exists, err := s.store.CodeExists(ctx, code)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInternal, "registration code space exhausted")
}

// Register claims a spot for the caller. The event must be open for
// registration; a second claim on the same event is a conflict.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Registration, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	e, err := s.loadEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !e.IsRegistrationOpen(now) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "event is not open for registration")
	}

	status := models.StatusPending
	if s.autoConfirm {
		status = models.StatusConfirmed
	}

	for range maxCodeAttempts {
		code, err := s.GenerateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		reg := &models.Registration{
			ID:           id.NewRegistrationID(),
			EventID:      e.ID,
			UserID:       req.UserID,
			Code:         code,
			Status:       status,
			RegisteredAt: now,
			HolderName:   req.HolderName,
			HolderEmail:  req.HolderEmail,
		}
		if reg.QRCodeData, err = s.codec.Build(reg); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build qr payload")
		}

		err = s.store.Create(ctx, reg)
		switch {
		case err == nil:
			s.metrics.IncrementRegistrationsCreated()
			s.emit(ctx, audit.ActionRegistrationCreated, reg)
			s.logger.InfoContext(ctx, "registration created",
				"registration_id", reg.ID.String(),
				"event_id", reg.EventID.String(),
				"status", string(reg.Status),
				"request_id", requestcontext.RequestID(ctx),
			)
			return reg, nil
		case errors.Is(err, sentinel.ErrConflict):
			s.logger.WarnContext(ctx, "registration code collided on insert, retrying",
				"event_id", e.ID.String(),
			)
			continue
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "already registered for this event")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
		}
	}
	return nil, dErrors.New(dErrors.CodeInternal, "registration code space exhausted")
}

// Confirm moves a pending registration to confirmed, respecting capacity.
func (s *Service) Confirm(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status == models.StatusConfirmed {
		return reg, nil
	}
	e, err := s.loadEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if e.IsFull() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "event is at capacity")
	}
	reg, err = s.store.Modify(ctx, registrationID, func(r *models.Registration) error {
		if err := r.Transition(models.StatusConfirmed); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidState, "registration cannot be confirmed")
		}
		return nil
	})
	if err != nil {
		return nil, s.modifyError(err, "failed to confirm registration")
	}
	s.emit(ctx, audit.ActionRegistrationConfirmed, reg)
	return reg, nil
}

// Cancel withdraws a registration. Attendees may only cancel their own.
func (s *Service) Cancel(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	e, err := s.events.FindByID(ctx, reg.EventID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	now := s.clock.Now()
	reg, err = s.store.Modify(ctx, registrationID, func(r *models.Registration) error {
		if err := r.Cancel(e, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidState, "registration cannot be cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, s.modifyError(err, "failed to cancel registration")
	}
	s.emit(ctx, audit.ActionRegistrationCancelled, reg)
	return reg, nil
}

// RegenerateQR issues a fresh payload. The hash is recomputed from the
// stored registration, never copied from the old payload.
func (s *Service) RegenerateQR(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	if _, err := s.Get(ctx, registrationID); err != nil {
		return nil, err
	}
	reg, err := s.store.Modify(ctx, registrationID, func(r *models.Registration) error {
		if r.Status == models.StatusCancelled {
			return dErrors.New(dErrors.CodeInvalidState, "registration is cancelled")
		}
		data, err := s.codec.Build(r)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build qr payload")
		}
		r.QRCodeData = data
		return nil
	})
	if err != nil {
		return nil, s.modifyError(err, "failed to store qr payload")
	}
	s.emit(ctx, audit.ActionQRRegenerated, reg)
	return reg, nil
}

// Get returns a registration visible to the caller: admins see all,
// attendees only their own.
func (s *Service) Get(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if !requestcontext.IsAdmin(ctx) && requestcontext.UserID(ctx) != reg.UserID {
		// Reported as missing, not forbidden.
		return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return reg, nil
}

func (s *Service) FindByCode(ctx context.Context, code string) (*models.Registration, error) {
	code = models.NormalizeCode(code)
	if !models.ValidCode(code) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid registration code")
	}
	reg, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return reg, nil
}

func (s *Service) ListByEvent(ctx context.Context, eventID id.EventID, scope models.Scope) ([]*models.Registration, error) {
	regs, err := s.store.ListByEvent(ctx, eventID, scope)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

func (s *Service) find(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, registrationID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return reg, nil
}

// modifyError passes through domain errors raised inside a Modify callback.
func (s *Service) modifyError(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// loadEvent returns the event with a fresh confirmed count.
func (s *Service) loadEvent(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error) {
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if e.ConfirmedCount, err = s.store.CountConfirmed(ctx, eventID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
	}
	return e, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, reg *models.Registration) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:         action,
		RegistrationID: reg.ID.String(),
		EventID:        reg.EventID.String(),
		Code:           reg.Code,
	}
	if actor := requestcontext.UserID(ctx); !actor.IsNil() {
		event.ActorID = actor.String()
	}
	s.audit.Emit(ctx, event)
}

func translateNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
}
