package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	id "attest/pkg/domain"
)

type SequenceStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *SequenceStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestSequenceStoreSuite(t *testing.T) {
	suite.Run(t, new(SequenceStoreSuite))
}

// TestLazyCreation verifies the counter row materializes on first use with
// zero counters.
func (s *SequenceStoreSuite) TestLazyCreation() {
	projectID := id.NewProjectID()

	row, err := s.store.Get(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal(0, row.LastEvidenceNumber)
	s.Equal(0, row.LastReportVersion)
}

// TestMonotonicAllocation verifies both counters start at 1 and only
// increase, independently of each other.
func (s *SequenceStoreSuite) TestMonotonicAllocation() {
	projectID := id.NewProjectID()

	for want := 1; want <= 5; want++ {
		got, err := s.store.NextEvidenceNumber(s.ctx, projectID)
		s.Require().NoError(err)
		s.Equal(want, got)
	}

	version, err := s.store.NextReportVersion(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal(1, version, "report versions count separately from evidence numbers")

	row, err := s.store.Get(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal(5, row.LastEvidenceNumber)
	s.Equal(1, row.LastReportVersion)
}

// TestProjectIsolation verifies counters never bleed across projects.
func (s *SequenceStoreSuite) TestProjectIsolation() {
	first := id.NewProjectID()
	second := id.NewProjectID()

	for i := 0; i < 3; i++ {
		_, err := s.store.NextEvidenceNumber(s.ctx, first)
		s.Require().NoError(err)
	}

	got, err := s.store.NextEvidenceNumber(s.ctx, second)
	s.Require().NoError(err)
	s.Equal(1, got)
}

// TestConcurrentAllocation spawns N concurrent allocators and asserts the
// resulting set of numbers is exactly {1..N} with no duplicates.
func (s *SequenceStoreSuite) TestConcurrentAllocation() {
	const n = 64
	projectID := id.NewProjectID()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[int]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.store.NextEvidenceNumber(s.ctx, projectID)
			s.Require().NoError(err)
			mu.Lock()
			numbers[got] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(numbers, n, "every allocation must be unique")
	for want := 1; want <= n; want++ {
		s.Contains(numbers, want)
	}
}

// TestSnapshotRestore verifies the rollback hooks used by the in-memory
// transaction boundary.
func (s *SequenceStoreSuite) TestSnapshotRestore() {
	projectID := id.NewProjectID()

	_, err := s.store.NextEvidenceNumber(s.ctx, projectID)
	s.Require().NoError(err)

	snap := s.store.Snapshot(projectID)

	_, err = s.store.NextEvidenceNumber(s.ctx, projectID)
	s.Require().NoError(err)
	_, err = s.store.NextReportVersion(s.ctx, projectID)
	s.Require().NoError(err)

	s.store.Restore(snap)

	row, err := s.store.Get(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal(1, row.LastEvidenceNumber, "restore must roll the counter back")
	s.Equal(0, row.LastReportVersion)
}
