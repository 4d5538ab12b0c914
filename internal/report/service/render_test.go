package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/document"
	"attest/internal/evidence"
	"attest/internal/project"
	"attest/internal/report"
	"attest/internal/sequence"
	"attest/internal/storage"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

type RenderSuite struct {
	suite.Suite
	projects *project.InMemory
	items    *evidence.InMemory
	reports  *report.InMemoryStore
	objects  *storage.InMemoryObjectStore
	guard    *MemoryRenderGuard
	service  *Service
	ctx      context.Context

	projectID id.ProjectID
}

func (s *RenderSuite) SetupTest() {
	s.projects = project.NewInMemory()
	s.items = evidence.NewInMemory()
	s.reports = report.NewInMemoryStore()
	s.objects = storage.NewInMemoryObjectStore("artifacts")
	s.guard = NewMemoryRenderGuard()
	s.ctx = context.Background()

	counters := sequence.NewInMemory()
	drafts := report.NewInMemoryDraftStore()
	tx := NewInMemoryTx(s.projects, counters, s.items, drafts, s.reports)
	s.service = New(s.projects, drafts, s.reports, tx, s.objects, "artifacts",
		WithRenderGuard(s.guard),
		// A tiny threshold forces splitting with hand-sized fixtures.
		WithRenderer(document.NewRenderer(document.WithSplitBytes(2048))),
	)

	p, err := project.NewProject(id.NewProjectID(), "Havnegata 7", "REF-2026-007", "Kyst Eiendom AS", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.projects.Create(s.ctx, p))
	s.projectID = p.ID
}

func TestRenderSuite(t *testing.T) {
	suite.Run(t, new(RenderSuite))
}

// seedReport inserts a frozen instance citing n evidence items and returns
// its ID. Descriptions are padded so a handful of exhibits overflows the
// test threshold.
func (s *RenderSuite) seedReport(n int, pad int) id.ReportID {
	s.T().Helper()
	now := time.Now()
	content := report.DraftContent{
		Summary:     "Recurring water intrusion documented over six months.",
		Conclusions: "The responsible party must remediate within 30 days.",
	}
	instance, err := report.NewInstance(id.NewReportID(), s.projectID, 1, n, content, now)
	s.Require().NoError(err)

	snapshots := make([]report.EvidenceSnapshot, n)
	for i := range snapshots {
		snapshots[i] = report.EvidenceSnapshot{
			ReportID:       instance.ID,
			EvidenceItemID: id.NewEvidenceID(),
			EvidenceNumber: i + 1,
			Title:          fmt.Sprintf("Inspection photo %d", i+1),
			Description:    strings.Repeat("detail ", pad),
			FileRef:        fmt.Sprintf("files/photo-%d.jpg", i+1),
			IncludedAt:     now,
		}
	}
	s.Require().NoError(s.reports.CreateInstance(s.ctx, instance, snapshots))
	return instance.ID
}

// TestRenderSingleFile verifies a small report produces one complete main
// document with a digest.
func (s *RenderSuite) TestRenderSingleFile() {
	reportID := s.seedReport(2, 1)

	result, err := s.service.Render(s.ctx, reportID)
	s.Require().NoError(err)
	s.Require().Len(result.Artifacts, 1)

	main := result.Artifacts[0]
	s.Equal("report.html", main.Name)
	s.NotEmpty(main.Digest)
	s.Equal("mem://artifacts/projects/"+s.projectID.String()+"/reports/v001/report.html", main.URL)

	data, contentType, ok := s.objects.Get("projects/" + s.projectID.String() + "/reports/v001/report.html")
	s.Require().True(ok)
	s.Equal("text/html; charset=utf-8", contentType)
	page := string(data)
	s.True(strings.HasPrefix(page, "<!DOCTYPE html>"))
	s.Contains(page, "Recurring water intrusion")
	s.Contains(page, "Exhibit 1: Inspection photo 1")
	s.Contains(page, "Exhibit 2: Inspection photo 2")
	s.NotContains(page, "Appendix parts", "an unsplit render has no part index")
}

// TestRenderSplitsWithoutLoss verifies an oversized report splits into parts
// and every exhibit appears exactly once across the package.
func (s *RenderSuite) TestRenderSplitsWithoutLoss() {
	const n = 12
	reportID := s.seedReport(n, 60)

	result, err := s.service.Render(s.ctx, reportID)
	s.Require().NoError(err)
	s.Require().Greater(len(result.Artifacts), 1, "the fixture must overflow the threshold")

	s.Equal("report.html", result.Artifacts[0].Name)
	for i, artifact := range result.Artifacts[1:] {
		s.Equal(fmt.Sprintf("part-%02d.html", i+1), artifact.Name)
	}

	counts := make(map[int]int, n)
	for _, artifact := range result.Artifacts {
		data, _, ok := s.objects.Get("projects/" + s.projectID.String() + "/reports/v001/" + artifact.Name)
		s.Require().True(ok)
		page := string(data)
		s.True(strings.HasPrefix(page, "<!DOCTYPE html>"), "every part is a standalone document")
		s.True(strings.HasSuffix(strings.TrimSpace(page), "</html>"))
		s.Contains(page, "REF-2026-007", "every part carries the front matter")
		for num := 1; num <= n; num++ {
			counts[num] += strings.Count(page, fmt.Sprintf("<h3>Exhibit %d:", num))
		}
	}
	for num := 1; num <= n; num++ {
		s.Equal(1, counts[num], "exhibit %d must appear exactly once", num)
	}

	mainData, _, ok := s.objects.Get("projects/" + s.projectID.String() + "/reports/v001/report.html")
	s.Require().True(ok)
	mainPage := string(mainData)
	s.Contains(mainPage, "Recurring water intrusion", "narrative never leaves the main file")
	s.Contains(mainPage, "Appendix parts")
	s.Contains(mainPage, "part-01.html")

	for _, artifact := range result.Artifacts {
		s.NotEmpty(artifact.Digest)
		s.Len(artifact.Digest, 64)
	}
}

// TestRenderGuardConflict verifies a second render of the same report is
// turned away while the lease is held, and admitted after release.
func (s *RenderSuite) TestRenderGuardConflict() {
	reportID := s.seedReport(1, 1)

	held, err := s.guard.Acquire(s.ctx, reportID)
	s.Require().NoError(err)
	s.Require().True(held)

	_, err = s.service.Render(s.ctx, reportID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	s.Require().NoError(s.guard.Release(s.ctx, reportID))

	_, err = s.service.Render(s.ctx, reportID)
	s.Require().NoError(err, "the failed attempt must not leak a lease")
}

// TestRenderUnknownReport verifies the lease is released on failure paths.
func (s *RenderSuite) TestRenderUnknownReport() {
	missing := id.NewReportID()

	_, err := s.service.Render(s.ctx, missing)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	held, err := s.guard.Acquire(s.ctx, missing)
	s.Require().NoError(err)
	s.True(held, "a failed render must release its lease")
}

// TestRenderArchivedStatus verifies the archived flag surfaces in the
// rendered front matter.
func (s *RenderSuite) TestRenderArchivedStatus() {
	reportID := s.seedReport(1, 1)
	_, err := s.reports.SetArchived(s.ctx, reportID)
	s.Require().NoError(err)

	_, err = s.service.Render(s.ctx, reportID)
	s.Require().NoError(err)

	data, _, ok := s.objects.Get("projects/" + s.projectID.String() + "/reports/v001/report.html")
	s.Require().True(ok)
	s.Contains(string(data), "<dt>Status</dt><dd>archived</dd>")
}
