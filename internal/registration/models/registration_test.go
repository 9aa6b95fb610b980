package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	eventmodels "eventdesk/internal/event/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

type RegistrationSuite struct {
	suite.Suite
	event *eventmodels.Event
	rules eventmodels.Rules
	start time.Time
}

func TestRegistrationSuite(t *testing.T) {
	suite.Run(t, new(RegistrationSuite))
}

func (s *RegistrationSuite) SetupTest() {
	day := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	startTime := 18 * time.Hour
	s.event = &eventmodels.Event{
		ID:        id.NewEventID(),
		Title:     "Go Meetup",
		Status:    eventmodels.StatusPublished,
		StartDate: day,
		StartTime: &startTime,
	}
	s.rules = eventmodels.DefaultRules()
	s.start = s.event.StartDateTime()
}

func (s *RegistrationSuite) newRegistration(status Status) *Registration {
	return &Registration{
		ID:      id.NewRegistrationID(),
		EventID: s.event.ID,
		Code:    "K7Q2ZP9A",
		Status:  status,
	}
}

func (s *RegistrationSuite) TestCanCheckIn() {
	inWindow := s.start.Add(-30 * time.Minute)

	s.Run("confirmed registration inside the window passes", func() {
		ok, reason := s.newRegistration(StatusConfirmed).CanCheckIn(s.event, s.rules, inWindow)
		s.True(ok)
		s.Equal(IneligibleNone, reason)
	})

	s.Run("non-confirmed statuses never pass regardless of time", func() {
		for _, status := range []Status{StatusPending, StatusCancelled} {
			for _, now := range []time.Time{inWindow, s.start, s.start.AddDate(1, 0, 0)} {
				ok, reason := s.newRegistration(status).CanCheckIn(s.event, s.rules, now)
				s.False(ok)
				s.Equal(IneligibleNotConfirmed, reason)
			}
		}
	})

	s.Run("checked-in registrations never pass again", func() {
		r := s.newRegistration(StatusConfirmed)
		at := inWindow
		r.CheckedInAt = &at
		for _, now := range []time.Time{inWindow, s.start, s.start.Add(72 * time.Hour)} {
			ok, reason := r.CanCheckIn(s.event, s.rules, now)
			s.False(ok)
			s.Equal(IneligibleAlreadyCheckedIn, reason)
		}
	})

	s.Run("missing event", func() {
		ok, reason := s.newRegistration(StatusConfirmed).CanCheckIn(nil, s.rules, inWindow)
		s.False(ok)
		s.Equal(IneligibleEventMissing, reason)
	})

	s.Run("unpublished event", func() {
		s.event.Status = eventmodels.StatusDraft
		defer func() { s.event.Status = eventmodels.StatusPublished }()
		ok, reason := s.newRegistration(StatusConfirmed).CanCheckIn(s.event, s.rules, inWindow)
		s.False(ok)
		s.Equal(IneligibleEventNotPublished, reason)
	})

	s.Run("too early", func() {
		ok, reason := s.newRegistration(StatusConfirmed).CanCheckIn(s.event, s.rules, s.start.Add(-3*time.Hour))
		s.False(ok)
		s.Equal(IneligibleOutsideWindow, reason)
	})
}

func (s *RegistrationSuite) TestTransitions() {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		s.Run(string(tt.from)+"->"+string(tt.to), func() {
			r := s.newRegistration(tt.from)
			err := r.Transition(tt.to)
			if tt.allowed {
				s.Require().NoError(err)
				s.Equal(tt.to, r.Status)
			} else {
				s.ErrorIs(err, sentinel.ErrInvalidState)
				s.Equal(tt.from, r.Status)
			}
		})
	}
}

func (s *RegistrationSuite) TestCancel() {
	before := s.start.Add(-24 * time.Hour)

	s.Run("pending before start", func() {
		r := s.newRegistration(StatusPending)
		s.Require().NoError(r.Cancel(s.event, before))
		s.Equal(StatusCancelled, r.Status)
	})

	s.Run("blocked once the event started", func() {
		r := s.newRegistration(StatusConfirmed)
		s.False(r.CanBeCancelled(s.event, s.start))
		s.ErrorIs(r.Cancel(s.event, s.start), sentinel.ErrInvalidState)
	})

	s.Run("blocked once checked in", func() {
		r := s.newRegistration(StatusConfirmed)
		r.CheckedInAt = &before
		s.ErrorIs(r.Cancel(s.event, before), sentinel.ErrInvalidState)
	})

	s.Run("blocked when already cancelled", func() {
		r := s.newRegistration(StatusCancelled)
		s.False(r.CanBeCancelled(s.event, before))
	})
}

func TestCodeShape(t *testing.T) {
	assert.True(t, ValidCode("K7Q2ZP9A"))
	assert.False(t, ValidCode("k7q2zp9a"))
	assert.False(t, ValidCode("K7Q2ZP9"))
	assert.False(t, ValidCode("K7Q2-P9A"))
	assert.Equal(t, "K7Q2ZP9A", NormalizeCode("  k7q2zp9a "))
}

func TestScopeMatches(t *testing.T) {
	confirmed := StatusConfirmed
	yes := true
	at := time.Now()
	r := &Registration{Code: "K7Q2ZP9A", Status: StatusConfirmed, HolderEmail: "ada@example.com", CheckedInAt: &at}

	assert.True(t, Scope{}.Matches(r))
	assert.True(t, Scope{Status: &confirmed, CheckedIn: &yes}.Matches(r))
	assert.True(t, Scope{Query: "k7q2zp9a"}.Matches(r))
	assert.True(t, Scope{Query: "ADA@example.com"}.Matches(r))
	assert.False(t, Scope{Query: "someone@example.com"}.Matches(r))

	no := false
	require.False(t, Scope{CheckedIn: &no}.Matches(r))
}
