package memory

import (
	"context"
	"sync"

	audit "attest/pkg/platform/audit"
)

// InMemoryStore keeps audit events per project. Used by unit tests and local
// runs without a database.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ProjectID] = append(s.events[event.ProjectID], event)
	return nil
}

// ListByProject returns the recorded trail for one project in append order.
func (s *InMemoryStore) ListByProject(_ context.Context, projectID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[projectID]...), nil
}

// ListAll returns all audit events across all projects.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allEvents []audit.Event
	for _, projectEvents := range s.events {
		allEvents = append(allEvents, projectEvents...)
	}
	return allEvents, nil
}
