package report

import (
	"context"
	"sort"
	"sync"

	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemoryDraftStore keeps drafts in a map. Used by unit tests and as the
// reference implementation of the store contract.
type InMemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[id.ProjectID]*Draft
}

func NewInMemoryDraftStore() *InMemoryDraftStore {
	return &InMemoryDraftStore{drafts: make(map[id.ProjectID]*Draft)}
}

func (s *InMemoryDraftStore) Upsert(_ context.Context, draft *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *draft
	s.drafts[draft.ProjectID] = &cp
	return nil
}

func (s *InMemoryDraftStore) FindByProject(_ context.Context, projectID id.ProjectID) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *draft
	return &cp, nil
}

// InMemoryStore keeps instances and snapshots in maps.
type InMemoryStore struct {
	mu        sync.RWMutex
	instances map[id.ReportID]*Instance
	snapshots map[id.ReportID][]EvidenceSnapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		instances: make(map[id.ReportID]*Instance),
		snapshots: make(map[id.ReportID][]EvidenceSnapshot),
	}
}

func (s *InMemoryStore) CreateInstance(_ context.Context, instance *Instance, snapshots []EvidenceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[instance.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.instances {
		if existing.ProjectID == instance.ProjectID && existing.VersionNumber == instance.VersionNumber {
			return sentinel.ErrConflict
		}
	}
	cp := *instance
	s.instances[instance.ID] = &cp
	rows := make([]EvidenceSnapshot, len(snapshots))
	copy(rows, snapshots)
	s.snapshots[instance.ID] = rows
	return nil
}

func (s *InMemoryStore) FindInstance(_ context.Context, reportID id.ReportID) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.instances[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *instance
	return &cp, nil
}

func (s *InMemoryStore) ListByProject(_ context.Context, projectID id.ProjectID) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Instance
	for _, instance := range s.instances {
		if instance.ProjectID != projectID {
			continue
		}
		cp := *instance
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].VersionNumber < out[b].VersionNumber })
	return out, nil
}

func (s *InMemoryStore) ListSnapshots(_ context.Context, reportID id.ReportID) ([]EvidenceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.snapshots[reportID]
	if !ok {
		if _, exists := s.instances[reportID]; !exists {
			return nil, sentinel.ErrNotFound
		}
		return nil, nil
	}
	out := make([]EvidenceSnapshot, len(rows))
	copy(out, rows)
	sort.Slice(out, func(a, b int) bool { return out[a].EvidenceNumber < out[b].EvidenceNumber })
	return out, nil
}

func (s *InMemoryStore) SetArchived(_ context.Context, reportID id.ReportID) (*Instance, error) {
	return s.flip(reportID, func(instance *Instance) { instance.ApplyArchived() })
}

func (s *InMemoryStore) SetBackupDownloaded(_ context.Context, reportID id.ReportID) (*Instance, error) {
	return s.flip(reportID, func(instance *Instance) { instance.ApplyBackupDownloaded() })
}

func (s *InMemoryStore) flip(reportID id.ReportID, mutate func(*Instance)) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	instance, ok := s.instances[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	mutate(instance)
	cp := *instance
	return &cp, nil
}

// Snapshot and Restore back the in-memory generate transaction; a failed
// unit of work must not leave a half-written instance visible. A unit only
// ever inserts instances, so the snapshot records which of the project's
// reports already existed and the restore deletes the rest. Rows the unit
// never wrote, including flag flips that land on other reports while it is
// open, stay untouched.

func (s *InMemoryStore) Snapshot(projectID id.ProjectID) map[id.ReportID]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.ReportID]struct{})
	for key, instance := range s.instances {
		if instance.ProjectID == projectID {
			out[key] = struct{}{}
		}
	}
	return out
}

func (s *InMemoryStore) Restore(projectID id.ProjectID, existing map[id.ReportID]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, instance := range s.instances {
		if instance.ProjectID != projectID {
			continue
		}
		if _, ok := existing[key]; ok {
			continue
		}
		delete(s.instances, key)
		delete(s.snapshots, key)
	}
}
