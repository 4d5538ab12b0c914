package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/evidence"
	"attest/internal/project"
	"attest/internal/sequence"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

type EvidenceServiceSuite struct {
	suite.Suite
	items    *evidence.InMemory
	counters *sequence.InMemory
	projects *project.InMemory
	service  *Service
	ctx      context.Context

	projectID id.ProjectID
}

func (s *EvidenceServiceSuite) SetupTest() {
	s.items = evidence.NewInMemory()
	s.counters = sequence.NewInMemory()
	s.projects = project.NewInMemory()
	s.service = New(s.items, s.projects, NewInMemoryTx(s.items, s.counters))
	s.ctx = context.Background()

	p, err := project.NewProject(id.NewProjectID(), "Vestre Gate 12", "REF-2026-001", "Nordic Property AS", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.projects.Create(s.ctx, p))
	s.projectID = p.ID
}

func TestEvidenceServiceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceServiceSuite))
}

// TestCreate verifies numbering starts at 1, increments per item, and that
// validation failures never consume a number.
func (s *EvidenceServiceSuite) TestCreate() {
	s.Run("assigns sequential numbers", func() {
		first, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "Water damage", IncludeInReport: true})
		s.Require().NoError(err)
		s.Equal(1, first.EvidenceNumber)

		second, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "Mold sample"})
		s.Require().NoError(err)
		s.Equal(2, second.EvidenceNumber)
	})

	s.Run("rejects blank title without consuming a number", func() {
		_, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "   "})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		next, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "After the failure"})
		s.Require().NoError(err)
		s.Equal(3, next.EvidenceNumber)
	})

	s.Run("rejects unknown project", func() {
		_, err := s.service.Create(s.ctx, id.NewProjectID(), CreateInput{Title: "Orphan"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestCreateConcurrent verifies concurrent creations produce a dense,
// duplicate-free numbering.
func (s *EvidenceServiceSuite) TestCreateConcurrent() {
	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: fmt.Sprintf("Item %d", i)})
			s.Require().NoError(err)
		}(i)
	}
	wg.Wait()

	items, err := s.service.List(s.ctx, s.projectID, true)
	s.Require().NoError(err)
	s.Require().Len(items, n)
	for i, item := range items {
		s.Equal(i+1, item.EvidenceNumber)
	}
}

// TestBackfillFromSource verifies chronological numbering with stable ID
// tiebreaks and that repeated calls converge.
func (s *EvidenceServiceSuite) TestBackfillFromSource() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []evidence.SourceEntry{
		{ID: "entry-c", CreatedAt: base.Add(2 * time.Hour), Content: "Ceiling stain", FileRef: "files/c.jpg"},
		{ID: "entry-a", CreatedAt: base, Content: "Broken window", FileRef: "files/a.jpg", IncludeInReportDefault: true},
		{ID: "entry-b", CreatedAt: base, Content: "", FileRef: "files/b.jpg"},
	}

	created, err := s.service.BackfillFromSource(s.ctx, s.projectID, entries)
	s.Require().NoError(err)
	s.Equal(3, created)

	items, err := s.service.List(s.ctx, s.projectID, true)
	s.Require().NoError(err)
	s.Require().Len(items, 3)

	// Same timestamp: entry-a before entry-b by ID, entry-c last by time.
	s.Equal("entry-a", items[0].SourceEntryID)
	s.Equal(1, items[0].EvidenceNumber)
	s.True(items[0].IncludeInReport)
	s.Equal("entry-b", items[1].SourceEntryID)
	s.Equal("Imported entry entry-b", items[1].Title, "blank content falls back to a generated title")
	s.Equal("entry-c", items[2].SourceEntryID)

	s.Run("is idempotent", func() {
		again, err := s.service.BackfillFromSource(s.ctx, s.projectID, entries)
		s.Require().NoError(err)
		s.Equal(0, again)

		items, err := s.service.List(s.ctx, s.projectID, true)
		s.Require().NoError(err)
		s.Len(items, 3)
	})

	s.Run("imports only new entries on a later run", func() {
		entries = append(entries, evidence.SourceEntry{ID: "entry-d", CreatedAt: base.Add(3 * time.Hour), Content: "New leak"})
		created, err := s.service.BackfillFromSource(s.ctx, s.projectID, entries)
		s.Require().NoError(err)
		s.Equal(1, created)

		items, err := s.service.List(s.ctx, s.projectID, true)
		s.Require().NoError(err)
		s.Require().Len(items, 4)
		s.Equal(4, items[3].EvidenceNumber)
	})
}

// TestMutationsOnLockedEvidence verifies the lock freezes inclusion,
// annotation and deletion.
func (s *EvidenceServiceSuite) TestMutationsOnLockedEvidence() {
	item, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "Published exhibit", IncludeInReport: true})
	s.Require().NoError(err)
	s.Require().NoError(s.items.LockAll(s.ctx, []id.EvidenceID{item.ID}, time.Now()))

	_, err = s.service.SetInclusion(s.ctx, item.ID, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedEvidence))

	_, err = s.service.Annotate(s.ctx, item.ID, "New title", "new text")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedEvidence))

	_, err = s.service.SoftDelete(s.ctx, item.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedEvidence))

	got, err := s.service.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.True(got.IncludeInReport, "rejected mutations leave the item untouched")
}

// TestSoftDeleteLeavesGap verifies a deleted item keeps its number consumed
// and disappears from active listings only.
func (s *EvidenceServiceSuite) TestSoftDeleteLeavesGap() {
	first, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "Kept"})
	s.Require().NoError(err)
	second, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "Removed"})
	s.Require().NoError(err)

	deleted, err := s.service.SoftDelete(s.ctx, second.ID)
	s.Require().NoError(err)
	s.NotNil(deleted.DeletedAt)

	third, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "After delete"})
	s.Require().NoError(err)
	s.Equal(3, third.EvidenceNumber, "deleted numbers are never reused")

	active, err := s.service.List(s.ctx, s.projectID, true)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(first.ID, active[0].ID)
	s.Equal(third.ID, active[1].ID)

	all, err := s.service.List(s.ctx, s.projectID, false)
	s.Require().NoError(err)
	s.Len(all, 3)
}

// TestMutationsOnMissingEvidence verifies not-found translation.
func (s *EvidenceServiceSuite) TestMutationsOnMissingEvidence() {
	_, err := s.service.SetInclusion(s.ctx, id.NewEvidenceID(), true)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Get(s.ctx, id.NewEvidenceID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// serializationStore fails every single-item mutation the way a store does
// when a concurrent writer wins.
type serializationStore struct {
	*evidence.InMemory
}

func (serializationStore) Execute(context.Context, id.EvidenceID, func(*evidence.Item) error, func(*evidence.Item)) (*evidence.Item, error) {
	return nil, sentinel.ErrSerialization
}

// TestSerializationFailureIsRetryable verifies a store-level serialization
// failure surfaces as a retryable conflict, not an internal error.
func (s *EvidenceServiceSuite) TestSerializationFailureIsRetryable() {
	item, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "Contended"})
	s.Require().NoError(err)

	svc := New(serializationStore{s.items}, s.projects, NewInMemoryTx(s.items, s.counters))
	_, err = svc.SetInclusion(s.ctx, item.ID, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSerializationConflict))
	s.True(dErrors.Retryable(err), "callers must be told to retry")
	s.Equal(http.StatusConflict, dErrors.ToHTTPStatus(dErrors.CodeOf(err)))
}

// TestRollbackScopedToProject verifies a rolled-back unit of work discards
// only its own project's writes.
func (s *EvidenceServiceSuite) TestRollbackScopedToProject() {
	otherID := id.NewProjectID()
	tx := NewInMemoryTx(s.items, s.counters)
	boom := dErrors.New(dErrors.CodeInternal, "boom")

	err := tx.RunInTx(s.ctx, s.projectID, func(stores TxStores) error {
		// A write for an unrelated project lands while this unit is open.
		other, itemErr := evidence.NewItem(id.NewEvidenceID(), otherID, 1, "Other project", "", "", false, time.Now())
		s.Require().NoError(itemErr)
		s.Require().NoError(s.items.Create(s.ctx, other))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	items, err := s.items.ListByProject(s.ctx, otherID, false)
	s.Require().NoError(err)
	s.Len(items, 1, "the rollback must not reach into other projects")
}

// TestAnnotateTrimsAndValidates verifies annotation replaces both fields and
// rejects blank titles.
func (s *EvidenceServiceSuite) TestAnnotateTrimsAndValidates() {
	item, err := s.service.Create(s.ctx, s.projectID, CreateInput{Title: "Original"})
	s.Require().NoError(err)

	updated, err := s.service.Annotate(s.ctx, item.ID, "  Revised  ", "inspected twice")
	s.Require().NoError(err)
	s.Equal("Revised", updated.Title)
	s.Equal("inspected twice", updated.Description)

	_, err = s.service.Annotate(s.ctx, item.ID, "   ", "text")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
