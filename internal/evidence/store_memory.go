package evidence

import (
	"context"
	"sort"
	"sync"
	"time"

	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemory is the in-process Store used by unit tests and local runs.
type InMemory struct {
	mu    sync.RWMutex
	items map[id.EvidenceID]*Item

	guardMu sync.Mutex
	guards  map[id.ProjectID]*sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		items:  make(map[id.EvidenceID]*Item),
		guards: make(map[id.ProjectID]*sync.Mutex),
	}
}

// BeginUnit acquires the project guard that serializes units of work with
// each other and with Execute calls on the same project. The returned func
// releases it. Store methods called inside the unit must not reacquire the
// guard.
func (s *InMemory) BeginUnit(projectID id.ProjectID) func() {
	guard := s.projectGuard(projectID)
	guard.Lock()
	return guard.Unlock
}

func (s *InMemory) projectGuard(projectID id.ProjectID) *sync.Mutex {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	guard, ok := s.guards[projectID]
	if !ok {
		guard = &sync.Mutex{}
		s.guards[projectID] = guard
	}
	return guard
}

func (s *InMemory) Create(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.items {
		if existing.ProjectID == item.ProjectID && existing.EvidenceNumber == item.EvidenceNumber {
			return sentinel.ErrConflict
		}
	}
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, evidenceID id.EvidenceID) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[evidenceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *InMemory) ListByProject(_ context.Context, projectID id.ProjectID, activeOnly bool) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(projectID, func(item *Item) bool {
		return !activeOnly || item.IsActive()
	}), nil
}

func (s *InMemory) ListIncluded(_ context.Context, projectID id.ProjectID) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(projectID, func(item *Item) bool {
		return item.IsActive() && item.IncludeInReport
	}), nil
}

func (s *InMemory) collect(projectID id.ProjectID, keep func(*Item) bool) []*Item {
	var out []*Item
	for _, item := range s.items {
		if item.ProjectID == projectID && keep(item) {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EvidenceNumber < out[j].EvidenceNumber
	})
	return out
}

func (s *InMemory) SourceEntryIDs(_ context.Context, projectID id.ProjectID) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{})
	for _, item := range s.items {
		if item.ProjectID == projectID && item.SourceEntryID != "" {
			out[item.SourceEntryID] = struct{}{}
		}
	}
	return out, nil
}

// Execute is the one mutation reachable outside a unit of work, so it takes
// the project guard first. A write that landed while a unit was open on the
// same project would otherwise be wiped by that unit's rollback.
func (s *InMemory) Execute(_ context.Context, evidenceID id.EvidenceID, validate func(*Item) error, mutate func(*Item)) (*Item, error) {
	s.mu.RLock()
	item, ok := s.items[evidenceID]
	if !ok {
		s.mu.RUnlock()
		return nil, sentinel.ErrNotFound
	}
	projectID := item.ProjectID
	s.mu.RUnlock()

	release := s.BeginUnit(projectID)
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok = s.items[evidenceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(item); err != nil {
		return nil, err
	}
	mutate(item)
	cp := *item
	return &cp, nil
}

func (s *InMemory) LockAll(_ context.Context, evidenceIDs []id.EvidenceID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evidenceID := range evidenceIDs {
		item, ok := s.items[evidenceID]
		if !ok {
			return sentinel.ErrNotFound
		}
		item.ApplyLock(at)
	}
	return nil
}

// Snapshot and Restore back the in-memory transaction boundaries. Both are
// scoped to one project so a rollback cannot touch rows of projects the unit
// never wrote. Callers hold the project guard from BeginUnit across the
// snapshot, the unit of work and any restore.

func (s *InMemory) Snapshot(projectID id.ProjectID) map[id.EvidenceID]Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.EvidenceID]Item)
	for key, item := range s.items {
		if item.ProjectID == projectID {
			out[key] = *item
		}
	}
	return out
}

func (s *InMemory) Restore(projectID id.ProjectID, snapshot map[id.EvidenceID]Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.items {
		if item.ProjectID == projectID {
			delete(s.items, key)
		}
	}
	for key, item := range snapshot {
		cp := item
		s.items[key] = &cp
	}
}
