package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventdesk/internal/checkin/models"
	eventmodels "eventdesk/internal/event/models"
	regmodels "eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

// RegistrationStore is the registration view a check-in store reads and
// mirrors check-ins onto.
type RegistrationStore interface {
	FindByCode(ctx context.Context, code string) (*regmodels.Registration, error)
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*regmodels.Registration, error)
	ListByEvent(ctx context.Context, eventID id.EventID, scope regmodels.Scope) ([]*regmodels.Registration, error)
	SetCheckedIn(ctx context.Context, registrationID id.RegistrationID, at *time.Time) error
}

type EventReader interface {
	FindByID(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error)
}

// InMemoryStore keeps one check-in per registration. Locking of a single
// attempt is the caller's job (see service.NewShardedTx); the map guard here
// only keeps the uniqueness invariant.
type InMemoryStore struct {
	mu            sync.RWMutex
	checkIns      map[id.RegistrationID]*models.CheckIn
	registrations RegistrationStore
	events        EventReader
}

func NewInMemoryStore(registrations RegistrationStore, events EventReader) *InMemoryStore {
	return &InMemoryStore{
		checkIns:      make(map[id.RegistrationID]*models.CheckIn),
		registrations: registrations,
		events:        events,
	}
}

func (s *InMemoryStore) FindRegistrationByCode(ctx context.Context, code string) (*regmodels.Registration, error) {
	return s.registrations.FindByCode(ctx, code)
}

func (s *InMemoryStore) FindRegistrationByID(ctx context.Context, registrationID id.RegistrationID) (*regmodels.Registration, error) {
	return s.registrations.FindByID(ctx, registrationID)
}

func (s *InMemoryStore) FindEvent(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error) {
	return s.events.FindByID(ctx, eventID)
}

func (s *InMemoryStore) FindByRegistration(_ context.Context, registrationID id.RegistrationID) (*models.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkIns[registrationID]
	if !ok {
		return nil, fmt.Errorf("check-in for registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// Create returns ErrAlreadyUsed when the registration already has a check-in.
func (s *InMemoryStore) Create(ctx context.Context, checkIn *models.CheckIn) error {
	s.mu.Lock()
	if _, taken := s.checkIns[checkIn.RegistrationID]; taken {
		s.mu.Unlock()
		return fmt.Errorf("check-in for registration %s: %w", checkIn.RegistrationID, sentinel.ErrAlreadyUsed)
	}
	cp := *checkIn
	s.checkIns[checkIn.RegistrationID] = &cp
	s.mu.Unlock()

	at := checkIn.CheckedInAt
	if err := s.registrations.SetCheckedIn(ctx, checkIn.RegistrationID, &at); err != nil {
		s.mu.Lock()
		delete(s.checkIns, checkIn.RegistrationID)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *InMemoryStore) DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) error {
	s.mu.Lock()
	if _, ok := s.checkIns[registrationID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("check-in for registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	delete(s.checkIns, registrationID)
	s.mu.Unlock()
	return s.registrations.SetCheckedIn(ctx, registrationID, nil)
}

// ListByEvent returns the event's check-ins oldest first.
func (s *InMemoryStore) ListByEvent(ctx context.Context, eventID id.EventID, filter models.Filter) ([]*models.CheckIn, error) {
	regs, err := s.registrations.ListByEvent(ctx, eventID, regmodels.Scope{})
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*models.CheckIn, 0)
	for _, r := range regs {
		c, ok := s.checkIns[r.ID]
		if !ok || !filter.Matches(c) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckedInAt.Before(out[j].CheckedInAt)
	})
	return out, nil
}

func (s *InMemoryStore) SearchRegistrations(ctx context.Context, eventID id.EventID, scope regmodels.Scope) ([]*regmodels.Registration, error) {
	return s.registrations.ListByEvent(ctx, eventID, scope)
}

func (s *InMemoryStore) Stats(ctx context.Context, eventID id.EventID) (*models.Stats, error) {
	regs, err := s.registrations.ListByEvent(ctx, eventID, regmodels.Scope{})
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{ByMethod: make(map[string]int)}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range regs {
		stats.Registered++
		switch r.Status {
		case regmodels.StatusPending:
			stats.Pending++
		case regmodels.StatusConfirmed:
			stats.Confirmed++
		case regmodels.StatusCancelled:
			stats.Cancelled++
		}
		if c, ok := s.checkIns[r.ID]; ok {
			stats.CheckedIn++
			stats.ByMethod[c.Method.String()]++
		}
	}
	return stats, nil
}
