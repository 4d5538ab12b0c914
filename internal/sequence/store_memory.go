package sequence

import (
	"context"
	"sync"

	id "attest/pkg/domain"
)

// InMemory allocates numbers from process-local counters. A single mutex is
// enough: allocation is a handful of map operations.
type InMemory struct {
	mu   sync.Mutex
	rows map[id.ProjectID]*ProjectSequence
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[id.ProjectID]*ProjectSequence)}
}

func (s *InMemory) row(projectID id.ProjectID) *ProjectSequence {
	row, ok := s.rows[projectID]
	if !ok {
		row = &ProjectSequence{ProjectID: projectID}
		s.rows[projectID] = row
	}
	return row
}

func (s *InMemory) NextEvidenceNumber(_ context.Context, projectID id.ProjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.row(projectID)
	row.LastEvidenceNumber++
	return row.LastEvidenceNumber, nil
}

func (s *InMemory) NextReportVersion(_ context.Context, projectID id.ProjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.row(projectID)
	row.LastReportVersion++
	return row.LastReportVersion, nil
}

func (s *InMemory) Get(_ context.Context, projectID id.ProjectID) (*ProjectSequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.row(projectID)
	return &cp, nil
}

// Rollback support for the in-memory transaction boundary: the report
// service's memory tx snapshots counters before mutating and restores them
// when the unit of work fails.

func (s *InMemory) Snapshot(projectID id.ProjectID) ProjectSequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.row(projectID)
}

func (s *InMemory) Restore(row ProjectSequence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := row
	s.rows[row.ProjectID] = &cp
}
