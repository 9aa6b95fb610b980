package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	eventmodels "eventdesk/internal/event/models"
	eventstore "eventdesk/internal/event/store"
	"eventdesk/internal/qrcode"
	"eventdesk/internal/registration/models"
	"eventdesk/internal/registration/store"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/clock"
	"eventdesk/pkg/platform/sentinel"
	"eventdesk/pkg/requestcontext"
)

type RegistrationServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	events   *eventstore.InMemoryStore
	store    *store.InMemoryStore
	codec    *qrcode.Codec
	event    *eventmodels.Event
	attendee id.UserID
	admin    id.UserID
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.now = time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	s.events = eventstore.NewInMemoryStore()
	s.store = store.NewInMemoryStore()
	s.codec = qrcode.New("test-app-key", "eventdesk-qr", qrcode.WithClock(clock.NewFixed(s.now)))
	s.attendee = id.UserID(uuid.New())
	s.admin = id.UserID(uuid.New())

	startTime := 18 * time.Hour
	s.event = &eventmodels.Event{
		ID:        id.NewEventID(),
		Title:     "Go Meetup",
		Status:    eventmodels.StatusPublished,
		StartDate: time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
		StartTime: &startTime,
	}
	s.Require().NoError(s.events.Save(context.Background(), s.event))
	s.ctx = requestcontext.WithUser(context.Background(), s.attendee, requestcontext.RoleAttendee)
}

func (s *RegistrationServiceSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithClock(clock.NewFixed(s.now)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(s.store, s.events, s.codec, append(base, opts...)...)
}

func (s *RegistrationServiceSuite) registerRequest(userID id.UserID) *models.RegisterRequest {
	return &models.RegisterRequest{
		EventID:     s.event.ID,
		UserID:      userID,
		HolderName:  " Ada Lovelace ",
		HolderEmail: "Ada@Example.com",
	}
}

// sequence hands out codes in order, then repeats the last one.
func sequence(codes ...string) CodeGenerator {
	var i atomic.Int32
	return func() (string, error) {
		n := int(i.Add(1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		return codes[n], nil
	}
}

func (s *RegistrationServiceSuite) TestGenerateUniqueCode() {
	s.Run("real generator yields the code shape", func() {
		code, err := s.newService().GenerateUniqueCode(s.ctx)
		s.Require().NoError(err)
		s.True(models.ValidCode(code), code)
	})

	s.Run("skips codes already in use", func() {
		s.Require().NoError(s.store.Create(s.ctx, &models.Registration{
			ID: id.NewRegistrationID(), EventID: id.NewEventID(), UserID: s.admin, Code: "AAAAAAAA",
		}))
		svc := s.newService(WithCodeGenerator(sequence("AAAAAAAA", "AAAAAAAA", "BBBBBBBB")))
		code, err := svc.GenerateUniqueCode(s.ctx)
		s.Require().NoError(err)
		s.Equal("BBBBBBBB", code)
	})

	s.Run("gives up after the attempt cap", func() {
		var calls atomic.Int32
		svc := s.newService(WithCodeGenerator(func() (string, error) {
			calls.Add(1)
			return "AAAAAAAA", nil
		}))
		_, err := svc.GenerateUniqueCode(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal("registration code space exhausted", dErrors.MessageOf(err))
		s.Equal(int32(maxCodeAttempts), calls.Load())
	})
}

func (s *RegistrationServiceSuite) TestRegister() {
	s.Run("creates a pending registration with a verifiable qr payload", func() {
		reg, err := s.newService().Register(s.ctx, s.registerRequest(s.attendee))
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reg.Status)
		s.Equal("Ada Lovelace", reg.HolderName)
		s.Equal("ada@example.com", reg.HolderEmail)
		s.True(models.ValidCode(reg.Code))

		p, err := s.codec.Parse(reg.QRCodeData)
		s.Require().NoError(err)
		s.Equal(reg.Code, p.RegistrationCode)
		s.NoError(s.codec.Verify(p, reg))
	})

	s.Run("second claim on the same event conflicts", func() {
		_, err := s.newService().Register(s.ctx, s.registerRequest(s.attendee))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("auto confirm starts confirmed", func() {
		reg, err := s.newService(WithAutoConfirm(true)).Register(s.ctx, s.registerRequest(id.UserID(uuid.New())))
		s.Require().NoError(err)
		s.Equal(models.StatusConfirmed, reg.Status)
	})
}

func (s *RegistrationServiceSuite) TestRegisterRequiresOpenEvent() {
	s.Run("draft event", func() {
		s.event.Status = eventmodels.StatusDraft
		s.Require().NoError(s.events.Save(s.ctx, s.event))
		_, err := s.newService().Register(s.ctx, s.registerRequest(s.attendee))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("full event", func() {
		capacity := 1
		s.event.Status = eventmodels.StatusPublished
		s.event.MaxCapacity = &capacity
		s.Require().NoError(s.events.Save(s.ctx, s.event))

		_, err := s.newService(WithAutoConfirm(true)).Register(s.ctx, s.registerRequest(s.admin))
		s.Require().NoError(err)
		_, err = s.newService().Register(s.ctx, s.registerRequest(s.attendee))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("missing event", func() {
		req := s.registerRequest(s.attendee)
		req.EventID = id.NewEventID()
		_, err := s.newService().Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// collidingStore reports a code collision on the first insert, as a racing
// writer would through the unique index.
type collidingStore struct {
	*store.InMemoryStore
	collided atomic.Bool
}

func (c *collidingStore) Create(ctx context.Context, r *models.Registration) error {
	if c.collided.CompareAndSwap(false, true) {
		return fmt.Errorf("registration code %s: %w", r.Code, sentinel.ErrConflict)
	}
	return c.InMemoryStore.Create(ctx, r)
}

func (s *RegistrationServiceSuite) TestRegisterRetriesInsertCollision() {
	cs := &collidingStore{InMemoryStore: s.store}
	svc := New(cs, s.events, s.codec,
		WithClock(clock.NewFixed(s.now)),
		WithCodeGenerator(sequence("AAAAAAAA", "BBBBBBBB")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	reg, err := svc.Register(s.ctx, s.registerRequest(s.attendee))
	s.Require().NoError(err)
	s.Equal("BBBBBBBB", reg.Code)
}

func (s *RegistrationServiceSuite) TestLifecycle() {
	svc := s.newService()
	reg, err := svc.Register(s.ctx, s.registerRequest(s.attendee))
	s.Require().NoError(err)

	adminCtx := requestcontext.WithUser(context.Background(), s.admin, requestcontext.RoleAdmin)
	confirmed, err := svc.Confirm(adminCtx, reg.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, confirmed.Status)

	s.Run("another attendee cannot see or cancel it", func() {
		other := requestcontext.WithUser(context.Background(), id.UserID(uuid.New()), requestcontext.RoleAttendee)
		_, err := svc.Get(other, reg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = svc.Cancel(other, reg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("regenerated qr still verifies", func() {
		regenerated, err := svc.RegenerateQR(s.ctx, reg.ID)
		s.Require().NoError(err)
		p, err := s.codec.Parse(regenerated.QRCodeData)
		s.Require().NoError(err)
		s.NoError(s.codec.Verify(p, regenerated))
	})

	s.Run("owner cancels", func() {
		cancelled, err := svc.Cancel(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)

		_, err = svc.Confirm(adminCtx, reg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		_, err = svc.RegenerateQR(s.ctx, reg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *RegistrationServiceSuite) TestCancelAfterEventStarted() {
	reg, err := s.newService().Register(s.ctx, s.registerRequest(s.attendee))
	s.Require().NoError(err)

	late := s.newService(WithClock(clock.NewFixed(s.event.StartDateTime().Add(time.Minute))))
	_, err = late.Cancel(s.ctx, reg.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *RegistrationServiceSuite) TestFindByCode() {
	svc := s.newService()
	reg, err := svc.Register(s.ctx, s.registerRequest(s.attendee))
	s.Require().NoError(err)

	found, err := svc.FindByCode(s.ctx, " "+strings.ToLower(reg.Code)+" ")
	s.Require().NoError(err)
	s.Equal(reg.ID, found.ID)

	_, err = svc.FindByCode(s.ctx, "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = svc.FindByCode(s.ctx, "ZZZZZZZZ")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// interleavedEvents runs hook once, right after the service has read the
// registration and goes to load its event.
type interleavedEvents struct {
	EventReader
	hook func()
	once sync.Once
}

func (e *interleavedEvents) FindByID(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error) {
	e.once.Do(e.hook)
	return e.EventReader.FindByID(ctx, eventID)
}

// interleavedStore runs hook once after the first registration read.
type interleavedStore struct {
	*store.InMemoryStore
	hook func()
	once sync.Once
}

func (st *interleavedStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := st.InMemoryStore.FindByID(ctx, registrationID)
	st.once.Do(st.hook)
	return reg, err
}

func (s *RegistrationServiceSuite) confirmedRegistration() *models.Registration {
	reg, err := s.newService(WithAutoConfirm(true)).Register(s.ctx, s.registerRequest(s.attendee))
	s.Require().NoError(err)
	return reg
}

func (s *RegistrationServiceSuite) TestCancelLosesToConcurrentCheckIn() {
	reg := s.confirmedRegistration()
	checkedInAt := s.now
	events := &interleavedEvents{EventReader: s.events, hook: func() {
		s.Require().NoError(s.store.SetCheckedIn(context.Background(), reg.ID, &checkedInAt))
	}}
	svc := New(s.store, events, s.codec, WithClock(clock.NewFixed(s.now)))

	_, err := svc.Cancel(s.ctx, reg.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	stored, err := s.store.FindByID(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, stored.Status)
	s.True(stored.IsCheckedIn())
}

func (s *RegistrationServiceSuite) TestConfirmDoesNotReviveConcurrentCancel() {
	reg, err := s.newService().Register(s.ctx, s.registerRequest(s.attendee))
	s.Require().NoError(err)
	events := &interleavedEvents{EventReader: s.events, hook: func() {
		_, err := s.store.Modify(context.Background(), reg.ID, func(r *models.Registration) error {
			r.Status = models.StatusCancelled
			return nil
		})
		s.Require().NoError(err)
	}}
	svc := New(s.store, events, s.codec, WithClock(clock.NewFixed(s.now)))

	adminCtx := requestcontext.WithUser(context.Background(), s.admin, requestcontext.RoleAdmin)
	_, err = svc.Confirm(adminCtx, reg.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	stored, err := s.store.FindByID(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, stored.Status)
}

func (s *RegistrationServiceSuite) TestRegenerateQRKeepsConcurrentConfirmation() {
	reg, err := s.newService().Register(s.ctx, s.registerRequest(s.attendee))
	s.Require().NoError(err)
	st := &interleavedStore{InMemoryStore: s.store, hook: func() {
		_, err := s.store.Modify(context.Background(), reg.ID, func(r *models.Registration) error {
			return r.Transition(models.StatusConfirmed)
		})
		s.Require().NoError(err)
	}}
	svc := New(st, s.events, s.codec, WithClock(clock.NewFixed(s.now)))

	regenerated, err := svc.RegenerateQR(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, regenerated.Status)

	stored, err := s.store.FindByID(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, stored.Status)
	s.Equal(regenerated.QRCodeData, stored.QRCodeData)
}
