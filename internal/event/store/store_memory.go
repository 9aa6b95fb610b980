package store

import (
	"context"
	"fmt"
	"sync"

	"eventdesk/internal/event/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

// InMemoryStore keeps events in a map. Reads return copies.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.EventID]models.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.EventID]models.Event)}
}

// Save inserts or replaces the event.
func (s *InMemoryStore) Save(_ context.Context, e *models.Event) error {
	if e == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = *e
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	return &e, nil
}
