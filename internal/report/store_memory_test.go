package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

type ReportStoreSuite struct {
	suite.Suite
	store  *InMemoryStore
	drafts *InMemoryDraftStore
	ctx    context.Context
}

func (s *ReportStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.drafts = NewInMemoryDraftStore()
	s.ctx = context.Background()
}

func TestReportStoreSuite(t *testing.T) {
	suite.Run(t, new(ReportStoreSuite))
}

func (s *ReportStoreSuite) mustInstance(projectID id.ProjectID, version int, snapshots ...EvidenceSnapshot) *Instance {
	s.T().Helper()
	count := len(snapshots)
	if count == 0 {
		count = 1
	}
	instance, err := NewInstance(id.NewReportID(), projectID, version, count, DraftContent{}, time.Now())
	s.Require().NoError(err)
	for i := range snapshots {
		snapshots[i].ReportID = instance.ID
	}
	s.Require().NoError(s.store.CreateInstance(s.ctx, instance, snapshots))
	return instance
}

// TestDraftUpsert verifies last-write-wins draft semantics and the not-found
// sentinel before the first save.
func (s *ReportStoreSuite) TestDraftUpsert() {
	projectID := id.NewProjectID()

	_, err := s.drafts.FindByProject(s.ctx, projectID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.drafts.Upsert(s.ctx, &Draft{ProjectID: projectID, Content: DraftContent{Summary: "first"}}))
	s.Require().NoError(s.drafts.Upsert(s.ctx, &Draft{ProjectID: projectID, Content: DraftContent{Summary: "second"}}))

	draft, err := s.drafts.FindByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal("second", draft.Content.Summary)
}

// TestCreateInstanceRejectsDuplicateVersion verifies the (project, version)
// uniqueness constraint the Postgres schema enforces.
func (s *ReportStoreSuite) TestCreateInstanceRejectsDuplicateVersion() {
	projectID := id.NewProjectID()
	s.mustInstance(projectID, 1)

	dup, err := NewInstance(id.NewReportID(), projectID, 1, 1, DraftContent{}, time.Now())
	s.Require().NoError(err)
	s.Require().ErrorIs(s.store.CreateInstance(s.ctx, dup, nil), sentinel.ErrConflict)

	other, err := NewInstance(id.NewReportID(), id.NewProjectID(), 1, 1, DraftContent{}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateInstance(s.ctx, other, nil), "versions only collide within a project")
}

// TestListByProjectOrdersByVersion verifies listings come back oldest version
// first regardless of insert order.
func (s *ReportStoreSuite) TestListByProjectOrdersByVersion() {
	projectID := id.NewProjectID()
	s.mustInstance(projectID, 3)
	s.mustInstance(projectID, 1)
	s.mustInstance(projectID, 2)
	s.mustInstance(id.NewProjectID(), 1)

	instances, err := s.store.ListByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Require().Len(instances, 3)
	for i, instance := range instances {
		s.Equal(i+1, instance.VersionNumber)
	}
}

// TestListSnapshotsOrdersByNumber verifies snapshot rows come back in
// evidence-number order.
func (s *ReportStoreSuite) TestListSnapshotsOrdersByNumber() {
	instance := s.mustInstance(id.NewProjectID(), 1,
		EvidenceSnapshot{EvidenceItemID: id.NewEvidenceID(), EvidenceNumber: 4, Title: "d"},
		EvidenceSnapshot{EvidenceItemID: id.NewEvidenceID(), EvidenceNumber: 1, Title: "a"},
		EvidenceSnapshot{EvidenceItemID: id.NewEvidenceID(), EvidenceNumber: 2, Title: "b"},
	)

	rows, err := s.store.ListSnapshots(s.ctx, instance.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal([]int{1, 2, 4}, []int{rows[0].EvidenceNumber, rows[1].EvidenceNumber, rows[2].EvidenceNumber})

	_, err = s.store.ListSnapshots(s.ctx, id.NewReportID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestFlagSetters verifies the one-way flag updates return the updated row
// and translate missing reports to the sentinel.
func (s *ReportStoreSuite) TestFlagSetters() {
	instance := s.mustInstance(id.NewProjectID(), 1)

	archived, err := s.store.SetArchived(s.ctx, instance.ID)
	s.Require().NoError(err)
	s.True(archived.Archived)

	fetched, err := s.store.SetBackupDownloaded(s.ctx, instance.ID)
	s.Require().NoError(err)
	s.True(fetched.BackupDownloaded)
	s.True(fetched.Archived, "the earlier flag persists")

	_, err = s.store.SetArchived(s.ctx, id.NewReportID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestSnapshotRestore verifies the rollback hooks drop instances created
// after the snapshot while keeping pre-existing rows, flag changes included.
func (s *ReportStoreSuite) TestSnapshotRestore() {
	projectID := id.NewProjectID()
	kept := s.mustInstance(projectID, 1)

	state := s.store.Snapshot(projectID)

	s.mustInstance(projectID, 2)
	other := s.mustInstance(id.NewProjectID(), 1)
	_, err := s.store.SetArchived(s.ctx, kept.ID)
	s.Require().NoError(err)

	s.store.Restore(projectID, state)

	instances, err := s.store.ListByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Require().Len(instances, 1)
	s.True(instances[0].Archived, "rollback only removes inserted rows, flags set meanwhile persist")

	_, err = s.store.FindInstance(s.ctx, other.ID)
	s.Require().NoError(err, "other projects are outside the rollback scope")
}
