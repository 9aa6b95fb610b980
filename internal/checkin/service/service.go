package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eventdesk/internal/audit"
	"eventdesk/internal/checkin/metrics"
	"eventdesk/internal/checkin/models"
	eventmodels "eventdesk/internal/event/models"
	"eventdesk/internal/qrcode"
	regmodels "eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/clock"
	"eventdesk/pkg/platform/sentinel"
)

const (
	// DefaultMaxBulk caps the number of codes in one bulk request.
	DefaultMaxBulk = 500
	// lookupLimit caps admin-assisted search results.
	lookupLimit = 50
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Actor is the caller performing a check-in. Non-admin actors may only
// check in their own registration and are recorded as self check-in.
type Actor struct {
	UserID id.UserID
	Admin  bool
}

// checkedInBy is nil for self check-in.
func (a Actor) checkedInBy() *id.UserID {
	if !a.Admin || a.UserID.IsNil() {
		return nil
	}
	u := a.UserID
	return &u
}

func (a Actor) String() string {
	if a.UserID.IsNil() {
		return "anonymous"
	}
	return a.UserID.String()
}

// Service orchestrates check-in attempts: resolve the registration, validate
// eligibility and record the check-in inside one transaction.
type Service struct {
	store           Store
	tx              StoreTx
	codec           *qrcode.Codec
	rules           eventmodels.Rules
	verifySignature bool
	maxBulk         int
	clock           clock.Clock
	logger          *slog.Logger
	metrics         *metrics.Metrics
	audit           AuditPublisher
	tracer          trace.Tracer
}

type Option func(*Service)

// WithTx replaces the default in-memory sharded transaction.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithRules(r eventmodels.Rules) Option {
	return func(s *Service) {
		s.rules = r
	}
}

// WithSignatureVerification toggles re-checking the QR security hash on scan.
func WithSignatureVerification(enabled bool) Option {
	return func(s *Service) {
		s.verifySignature = enabled
	}
}

func WithMaxBulk(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBulk = n
		}
	}
}

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

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(store Store, codec *qrcode.Codec, opts ...Option) *Service {
	s := &Service{
		store:           store,
		codec:           codec,
		rules:           eventmodels.DefaultRules(),
		verifySignature: true,
		maxBulk:         DefaultMaxBulk,
		clock:           clock.NewSystem(),
		logger:          slog.Default(),
		tracer:          otel.Tracer("eventdesk/checkin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(store, 0)
	}
	return s
}

// Attempt is one check-in request. Payload is set for QR scans and is
// verified against the stored registration.
type Attempt struct {
	Identifier string
	Method     models.Method
	Actor      Actor
	Payload    *qrcode.Payload
}

// ScanQR decodes a scanned payload and attempts a QR check-in.
func (s *Service) ScanQR(ctx context.Context, raw string, actor Actor) (models.Result, error) {
	p, err := s.codec.Parse(raw)
	if err != nil {
		res := models.NewFailure("", payloadReason(err))
		s.reject(ctx, Attempt{Method: models.MethodQR, Actor: actor}, nil, res)
		s.metrics.IncrementOutcome(models.MethodQR.String(), string(res.Reason()))
		return res, nil
	}
	return s.Attempt(ctx, Attempt{
		Identifier: p.RegistrationCode,
		Method:     models.MethodQR,
		Actor:      actor,
		Payload:    p,
	})
}

// CheckInByCode attempts a check-in from a typed registration code.
func (s *Service) CheckInByCode(ctx context.Context, code string, method models.Method, actor Actor) (models.Result, error) {
	if method == models.MethodQR || !method.Valid() {
		return models.Result{}, dErrors.New(dErrors.CodeInvalidInput, "method must be manual or id")
	}
	return s.Attempt(ctx, Attempt{Identifier: code, Method: method, Actor: actor})
}

// BulkCheckIn processes codes one by one. A failing code never aborts the
// rest; storage failures are reported as persistence_error for that code.
func (s *Service) BulkCheckIn(ctx context.Context, codes []string, actor Actor) (*models.BulkResult, error) {
	if !actor.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "bulk check-in requires an administrator")
	}
	if len(codes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "codes are required")
	}
	if len(codes) > s.maxBulk {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "too many codes in one request")
	}
	s.metrics.ObserveBulkSize(len(codes))

	out := models.NewBulkResult()
	for _, code := range codes {
		res, err := s.Attempt(ctx, Attempt{Identifier: code, Method: models.MethodManual, Actor: actor})
		if err != nil {
			failure := models.NewFailure(regmodels.NormalizeCode(code), models.ReasonPersistenceError)
			failure.Failure.Detail = dErrors.MessageOf(err)
			res = failure
		}
		out.Add(res)
	}
	return out, nil
}

// Attempt runs one check-in inside a transaction. Expected rejections come
// back as a failed Result; only infrastructure failures are errors.
func (s *Service) Attempt(ctx context.Context, a Attempt) (models.Result, error) {
	start := s.clock.Now()
	a.Identifier = regmodels.NormalizeCode(a.Identifier)

	ctx, span := s.tracer.Start(ctx, "checkin.attempt", trace.WithAttributes(
		attribute.String("checkin.method", a.Method.String()),
		attribute.String("checkin.code", a.Identifier),
		attribute.Bool("checkin.admin", a.Actor.Admin),
	))
	defer span.End()

	var (
		res models.Result
		reg *regmodels.Registration
	)
	err := s.tx.RunInTx(WithShardKey(ctx, a.Identifier), func(ctx context.Context, store Store) error {
		var err error
		res, reg, err = s.attemptInTx(ctx, store, a)
		return err
	})
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		res, err = s.lostRace(ctx, a.Identifier, reg)
	}

	outcome := "committed"
	switch {
	case err != nil:
		outcome = string(models.ReasonPersistenceError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "check-in failed")
		s.logger.ErrorContext(ctx, "check-in failed",
			"code", a.Identifier,
			"method", a.Method.String(),
			"actor", a.Actor.String(),
			"error", err,
		)
		s.emit(ctx, audit.ActionCheckInFailed, a, reg, string(models.ReasonPersistenceError), err.Error())
		err = dErrors.Wrap(err, dErrors.CodeInternal, "check-in could not be saved")
	case !res.OK():
		outcome = string(res.Reason())
		span.SetAttributes(attribute.String("checkin.reason", outcome))
		s.reject(ctx, a, reg, res)
	default:
		s.emit(ctx, audit.ActionCheckInCommitted, a, reg, "", "")
	}

	s.metrics.IncrementOutcome(a.Method.String(), outcome)
	s.metrics.ObserveAttemptLatency(a.Method.String(), s.clock.Now().Sub(start))
	return res, err
}

func (s *Service) attemptInTx(ctx context.Context, store Store, a Attempt) (models.Result, *regmodels.Registration, error) {
	if a.Identifier == "" {
		return models.NewFailure("", models.ReasonNotFound), nil, nil
	}
	reg, err := store.FindRegistrationByCode(ctx, a.Identifier)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.NewFailure(a.Identifier, models.ReasonNotFound), nil, nil
	}
	if err != nil {
		return models.Result{}, nil, err
	}
	if !a.Actor.Admin && reg.UserID != a.Actor.UserID {
		// Reported as missing, not forbidden.
		return models.NewFailure(a.Identifier, models.ReasonNotFound), reg, nil
	}

	if a.Payload != nil && s.verifySignature {
		if verr := s.codec.Verify(a.Payload, reg); verr != nil {
			return models.NewFailure(reg.Code, payloadReason(verr)), reg, nil
		}
	}

	existing, err := store.FindByRegistration(ctx, reg.ID)
	switch {
	case err == nil:
		return models.AlreadyCheckedIn(reg.Code, existing.CheckedInAt), reg, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return models.Result{}, reg, err
	}

	event, err := store.FindEvent(ctx, reg.EventID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.Result{}, reg, err
	}

	now := s.clock.Now()
	if ok, why := reg.CanCheckIn(event, s.rules, now); !ok {
		return models.NotEligible(reg.Code, why), reg, nil
	}

	checkIn := &models.CheckIn{
		ID:             id.NewCheckInID(),
		RegistrationID: reg.ID,
		CheckedInAt:    now,
		CheckedInBy:    a.Actor.checkedInBy(),
		Method:         a.Method,
	}
	if err := store.Create(ctx, checkIn); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Cancelled after the eligibility read.
			return models.NotEligible(reg.Code, regmodels.IneligibleNotConfirmed), reg, nil
		}
		return models.Result{}, reg, err
	}
	return models.NewSuccess(reg, event, checkIn), reg, nil
}

// lostRace reports the check-in a concurrent attempt committed first. The
// failed transaction is gone, so the winner is read outside it.
func (s *Service) lostRace(ctx context.Context, code string, reg *regmodels.Registration) (models.Result, error) {
	if reg == nil {
		found, err := s.store.FindRegistrationByCode(ctx, code)
		if err != nil {
			return models.Result{}, err
		}
		reg = found
	}
	existing, err := s.store.FindByRegistration(ctx, reg.ID)
	if err != nil {
		return models.Result{}, err
	}
	return models.AlreadyCheckedIn(reg.Code, existing.CheckedInAt), nil
}

// Undo deletes the check-in of a registration. Administrators only.
func (s *Service) Undo(ctx context.Context, registrationID id.RegistrationID, actor Actor) error {
	if !actor.Admin {
		return dErrors.New(dErrors.CodeForbidden, "undo requires an administrator")
	}
	reg, err := s.store.FindRegistrationByID(ctx, registrationID)
	if err != nil {
		return translateNotFound(err, "registration not found")
	}

	err = s.tx.RunInTx(WithShardKey(ctx, reg.Code), func(ctx context.Context, store Store) error {
		if _, err := store.FindRegistrationByCode(ctx, reg.Code); err != nil {
			return err
		}
		return store.DeleteByRegistration(ctx, reg.ID)
	})
	if err != nil {
		return translateNotFound(err, "registration is not checked in")
	}

	s.logger.InfoContext(ctx, "check-in undone",
		"registration_id", reg.ID.String(),
		"code", reg.Code,
		"actor", actor.String(),
	)
	s.emit(ctx, audit.ActionCheckInUndone, Attempt{Identifier: reg.Code, Actor: actor}, reg, "", "")
	return nil
}

// Lookup searches an event's registrations by code or holder email.
func (s *Service) Lookup(ctx context.Context, eventID id.EventID, query string) ([]*regmodels.Registration, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "query is required")
	}
	regs, err := s.store.SearchRegistrations(ctx, eventID, regmodels.Scope{Query: query, Limit: lookupLimit})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lookup failed")
	}
	return regs, nil
}

func (s *Service) Stats(ctx context.Context, eventID id.EventID) (*models.Stats, error) {
	if _, err := s.store.FindEvent(ctx, eventID); err != nil {
		return nil, translateNotFound(err, "event not found")
	}
	stats, err := s.store.Stats(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load check-in stats")
	}
	return stats, nil
}

func (s *Service) ListCheckIns(ctx context.Context, eventID id.EventID, filter models.Filter) ([]*models.CheckIn, error) {
	if filter.Method != nil && !filter.Method.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid check-in method")
	}
	list, err := s.store.ListByEvent(ctx, eventID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list check-ins")
	}
	return list, nil
}

func (s *Service) reject(ctx context.Context, a Attempt, reg *regmodels.Registration, res models.Result) {
	attrs := []any{
		"code", res.Failure.Code,
		"method", a.Method.String(),
		"actor", a.Actor.String(),
		"reason", string(res.Reason()),
	}
	if reg != nil {
		attrs = append(attrs, "registration_id", reg.ID.String())
	}
	if res.Failure.Detail != "" {
		attrs = append(attrs, "detail", res.Failure.Detail)
	}
	s.logger.InfoContext(ctx, "check-in rejected", attrs...)
	s.emit(ctx, audit.ActionCheckInRejected, a, reg, string(res.Reason()), res.Failure.Detail)
}

func (s *Service) emit(ctx context.Context, action audit.Action, a Attempt, reg *regmodels.Registration, reason, detail string) {
	if s.audit == nil {
		return
	}
	ev := audit.Event{
		Action: action,
		Code:   a.Identifier,
		Reason: reason,
		Detail: detail,
	}
	if a.Method.Valid() {
		ev.Method = a.Method.String()
	}
	if by := a.Actor.checkedInBy(); by != nil {
		ev.ActorID = by.String()
	}
	if reg != nil {
		ev.RegistrationID = reg.ID.String()
		ev.EventID = reg.EventID.String()
		ev.Code = reg.Code
	}
	s.audit.Emit(ctx, ev)
}

func payloadReason(err error) models.Reason {
	switch {
	case errors.Is(err, qrcode.ErrWrongType):
		return models.ReasonWrongType
	case errors.Is(err, qrcode.ErrMissingCode):
		return models.ReasonMissingCode
	case errors.Is(err, qrcode.ErrSignatureMismatch):
		return models.ReasonInvalidSignature
	case errors.Is(err, qrcode.ErrPayloadExpired):
		return models.ReasonExpiredPayload
	}
	return models.ReasonMalformedPayload
}

func translateNotFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	if dErrors.HasCode(err, dErrors.CodeTimeout) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "check-in store unavailable")
}
