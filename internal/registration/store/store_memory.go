package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

// InMemoryStore enforces the same unique keys as the Postgres schema:
// registration code and (event, user).
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.RegistrationID]*models.Registration
	byCode     map[string]id.RegistrationID
	byAttendee map[attendeeKey]id.RegistrationID
}

type attendeeKey struct {
	event id.EventID
	user  id.UserID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[id.RegistrationID]*models.Registration),
		byCode:     make(map[string]id.RegistrationID),
		byAttendee: make(map[attendeeKey]id.RegistrationID),
	}
}

func clone(r *models.Registration) *models.Registration {
	cp := *r
	if r.CheckedInAt != nil {
		at := *r.CheckedInAt
		cp.CheckedInAt = &at
	}
	return &cp
}

// Create returns ErrConflict on a code collision and ErrAlreadyUsed when the
// attendee already holds a registration for the event.
func (s *InMemoryStore) Create(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byCode[r.Code]; taken {
		return fmt.Errorf("registration code %s: %w", r.Code, sentinel.ErrConflict)
	}
	key := attendeeKey{event: r.EventID, user: r.UserID}
	if _, taken := s.byAttendee[key]; taken {
		return fmt.Errorf("attendee already registered: %w", sentinel.ErrAlreadyUsed)
	}
	s.byID[r.ID] = clone(r)
	s.byCode[r.Code] = r.ID
	s.byAttendee[key] = r.ID
	return nil
}

// Modify runs fn on a copy of the registration under the store lock and
// persists its status and QR payload. An error from fn leaves the row as is.
func (s *InMemoryStore) Modify(_ context.Context, registrationID id.RegistrationID, fn func(*models.Registration) error) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[registrationID]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	cp := clone(existing)
	if err := fn(cp); err != nil {
		return nil, err
	}
	existing.Status = cp.Status
	existing.QRCodeData = cp.QRCodeData
	return clone(existing), nil
}

func (s *InMemoryStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[registrationID]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	return clone(r), nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("registration code %s: %w", code, sentinel.ErrNotFound)
	}
	return clone(s.byID[regID]), nil
}

// ListByEvent returns the event's registrations oldest first.
func (s *InMemoryStore) ListByEvent(_ context.Context, eventID id.EventID, scope models.Scope) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0)
	for _, r := range s.byID {
		if r.EventID == eventID && scope.Matches(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	if scope.Limit > 0 && len(out) > scope.Limit {
		out = out[:scope.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) CountConfirmed(_ context.Context, eventID id.EventID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.byID {
		if r.EventID == eventID && r.Status == models.StatusConfirmed {
			n++
		}
	}
	return n, nil
}

// SetCheckedIn mirrors the check-in table onto the registration view. A nil
// time clears it. A cancelled registration cannot be marked checked in.
func (s *InMemoryStore) SetCheckedIn(_ context.Context, registrationID id.RegistrationID, at *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[registrationID]
	if !ok {
		return fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	if at != nil && r.Status == models.StatusCancelled {
		return fmt.Errorf("registration %s is cancelled: %w", registrationID, sentinel.ErrInvalidState)
	}
	if at == nil {
		r.CheckedInAt = nil
		return nil
	}
	t := *at
	r.CheckedInAt = &t
	return nil
}
