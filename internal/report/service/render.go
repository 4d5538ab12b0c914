package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"attest/internal/document"
	"attest/internal/project"
	"attest/internal/report"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
)

// ArtifactLocation describes one uploaded render artifact.
type ArtifactLocation struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Digest    string `json:"digest"`
	SizeBytes int    `json:"size_bytes"`
}

// RenderResult is what a successful render returns to the caller. Main is
// always first.
type RenderResult struct {
	ReportID  id.ReportID        `json:"report_id"`
	Artifacts []ArtifactLocation `json:"artifacts"`
}

// Render converts one immutable report version into uploaded document
// artifacts. Renders of distinct reports may run in parallel; a second
// render of the same report while one is in flight is turned away.
func (s *Service) Render(ctx context.Context, reportID id.ReportID) (*RenderResult, error) {
	ctx, span := s.tracer.Start(ctx, "report.Render")
	defer span.End()
	span.SetAttributes(attribute.String("report_id", reportID.String()))

	acquired, err := s.guard.Acquire(ctx, reportID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "render guard unavailable")
	}
	if !acquired {
		return nil, dErrors.New(dErrors.CodeConflict, "a render of this report is already in progress")
	}
	defer func() {
		if err := s.guard.Release(ctx, reportID); err != nil {
			s.log(ctx, "failed to release render lease", "report_id", reportID, "error", err)
		}
	}()

	start := time.Now()

	instance, err := s.reports.FindInstance(ctx, reportID)
	if err != nil {
		return nil, translateReportErr(err)
	}
	snapshots, err := s.reports.ListSnapshots(ctx, reportID)
	if err != nil {
		return nil, translateReportErr(err)
	}
	proj, err := s.projects.FindByID(ctx, instance.ProjectID)
	if err != nil {
		return nil, translateProjectErr(err)
	}

	doc, err := buildDocument(proj, instance, snapshots)
	if err != nil {
		return nil, err
	}

	pkg, err := s.renderer.RenderPackage(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}

	// Upload every file or record nothing: a partial artifact set must
	// never be handed back to the caller.
	if err := s.objects.EnsureBucket(ctx, s.bucket); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "artifact bucket unavailable")
	}
	prefix := fmt.Sprintf("projects/%s/reports/v%03d/", instance.ProjectID, instance.VersionNumber)
	files := pkg.Files()
	artifacts := make([]ArtifactLocation, len(files))
	for i, file := range files {
		url, err := s.objects.Put(ctx, prefix+file.Name, file.Data, "text/html; charset=utf-8")
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeRenderFailure, "failed to upload artifact "+file.Name)
		}
		artifacts[i] = ArtifactLocation{
			Name:      file.Name,
			URL:       url,
			Digest:    file.Digest,
			SizeBytes: len(file.Data),
		}
	}

	span.SetAttributes(attribute.Int("parts", len(pkg.Parts)))
	if s.metrics != nil {
		s.metrics.ObserveRender(start, len(files))
	}
	s.emitAudit(ctx, audit.EventReportRendered, instance.ProjectID, instance.ID.String(), "")
	s.log(ctx, "report rendered",
		"report_id", reportID,
		"version", instance.VersionNumber,
		"files", len(files),
	)
	return &RenderResult{ReportID: reportID, Artifacts: artifacts}, nil
}

// buildDocument assembles the logical document for one report version from
// its frozen snapshot. Exhibits are appended in ascending evidence-number
// order; ListSnapshots already returns them that way.
func buildDocument(proj *project.Project, instance *report.Instance, snapshots []report.EvidenceSnapshot) (*document.Document, error) {
	status := "final"
	if instance.Archived {
		status = "archived"
	}
	builder := document.NewBuilder(document.Metadata{
		DocumentType:     "Legal report",
		CaseNumber:       proj.ReferenceNumber,
		ReferenceNumber:  fmt.Sprintf("%s-v%d", proj.ReferenceNumber, instance.VersionNumber),
		CreatedAt:        instance.CreatedAt,
		ResponsibleParty: proj.ResponsibleParty,
		InvolvedParties: []document.Party{
			{Name: proj.ResponsibleParty, Role: "responsible"},
		},
		Status: status,
	})

	content := instance.ContentSnapshot
	for _, part := range []struct {
		id, title, text string
	}{
		{"summary", "Summary", content.Summary},
		{"legal-analysis", "Legal analysis", content.LegalAnalysis},
		{"technical-analysis", "Technical analysis", content.TechnicalAnalysis},
		{"conclusions", "Conclusions", content.Conclusions},
	} {
		if section, ok := sectionFromText(part.id, part.title, part.text); ok {
			builder.AddSection(section)
		}
	}

	for _, snap := range snapshots {
		builder.AddEvidence(document.EvidenceEntry{
			Code:        fmt.Sprintf("%d", snap.EvidenceNumber),
			Title:       snap.Title,
			Description: snap.Description,
			Category:    "exhibit",
			Date:        snap.IncludedAt,
			Source:      snap.FileRef,
		})
	}

	return builder.Build()
}
