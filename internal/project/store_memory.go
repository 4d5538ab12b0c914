package project

import (
	"context"
	"sync"
	"time"

	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemory is the in-process Store used by unit tests and local runs.
type InMemory struct {
	mu       sync.RWMutex
	projects map[id.ProjectID]*Project
}

func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[id.ProjectID]*Project)}
}

func (s *InMemory) Create(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[p.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, projectID id.ProjectID) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) ActivateLegalLock(_ context.Context, projectID id.ProjectID, at time.Time) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p.ApplyLegalLock(at)
	cp := *p
	return &cp, nil
}

// Snapshot and Restore back the in-memory generate transaction; the legal
// lock flag must roll back with the rest of a failed unit of work.

func (s *InMemory) Snapshot(projectID id.ProjectID) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return Project{}, false
	}
	return *p, true
}

func (s *InMemory) Restore(p Project, existed bool) {
	if !existed {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.projects[p.ID] = &cp
}
