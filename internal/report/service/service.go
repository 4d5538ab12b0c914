// Package service orchestrates the report lifecycle: draft editing, the
// atomic generate transaction that freezes a numbered version, rendering
// that version into portable artifacts, and the post-hoc bookkeeping flags.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"attest/internal/document"
	"attest/internal/project"
	"attest/internal/report"
	"attest/internal/report/metrics"
	"attest/internal/storage"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// ProjectStore is the slice of the project store the report service reads
// outside the generate transaction.
type ProjectStore interface {
	FindByID(ctx context.Context, projectID id.ProjectID) (*project.Project, error)
}

// AuditPublisher receives compliance events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates report operations.
type Service struct {
	projects ProjectStore
	drafts   report.DraftStore
	reports  report.Store
	tx       StoreTx

	renderer *document.Renderer
	objects  storage.ObjectStore
	bucket   string
	guard    RenderGuard

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithRenderGuard replaces the default in-process guard, typically with the
// Redis-backed one.
func WithRenderGuard(guard RenderGuard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

// WithRenderer replaces the default renderer, typically to change the split
// threshold.
func WithRenderer(r *document.Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// New constructs a Service.
func New(projects ProjectStore, drafts report.DraftStore, reports report.Store, tx StoreTx, objects storage.ObjectStore, bucket string, opts ...Option) *Service {
	s := &Service{
		projects: projects,
		drafts:   drafts,
		reports:  reports,
		tx:       tx,
		objects:  objects,
		bucket:   bucket,
		renderer: document.NewRenderer(),
		guard:    NewMemoryRenderGuard(),
		tracer:   otel.Tracer("attest/report"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateDraft replaces the project's draft content. Drafts have no history
// of their own; history exists only as generated snapshots.
func (s *Service) UpdateDraft(ctx context.Context, projectID id.ProjectID, content report.DraftContent) (*report.Draft, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, translateProjectErr(err)
	}
	draft := &report.Draft{
		ProjectID: projectID,
		Content:   content,
		UpdatedAt: requestcontext.Now(ctx),
	}
	if err := s.drafts.Upsert(ctx, draft); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save draft")
	}
	s.emitAudit(ctx, audit.EventDraftUpdated, projectID, "", "")
	return draft, nil
}

// GetDraft returns the project's draft, or an empty one when nothing has
// been saved yet.
func (s *Service) GetDraft(ctx context.Context, projectID id.ProjectID) (*report.Draft, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, translateProjectErr(err)
	}
	draft, err := s.drafts.FindByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &report.Draft{ProjectID: projectID}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load draft")
	}
	return draft, nil
}

// GetVersion loads one report instance.
func (s *Service) GetVersion(ctx context.Context, reportID id.ReportID) (*report.Instance, error) {
	instance, err := s.reports.FindInstance(ctx, reportID)
	if err != nil {
		return nil, translateReportErr(err)
	}
	return instance, nil
}

// ListVersions returns the project's instances, oldest version first.
func (s *Service) ListVersions(ctx context.Context, projectID id.ProjectID) ([]*report.Instance, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, translateProjectErr(err)
	}
	instances, err := s.reports.ListByProject(ctx, projectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list report versions")
	}
	return instances, nil
}

// ListCitedEvidence returns the frozen evidence snapshots of one instance.
func (s *Service) ListCitedEvidence(ctx context.Context, reportID id.ReportID) ([]report.EvidenceSnapshot, error) {
	snapshots, err := s.reports.ListSnapshots(ctx, reportID)
	if err != nil {
		return nil, translateReportErr(err)
	}
	return snapshots, nil
}

// Archive flips the one-way archived flag. Content is untouched.
func (s *Service) Archive(ctx context.Context, reportID id.ReportID) (*report.Instance, error) {
	instance, err := s.reports.SetArchived(ctx, reportID)
	if err != nil {
		return nil, translateReportErr(err)
	}
	s.emitAudit(ctx, audit.EventReportArchived, instance.ProjectID, instance.ID.String(), "")
	return instance, nil
}

// MarkBackupDownloaded records that an off-site backup copy was fetched.
func (s *Service) MarkBackupDownloaded(ctx context.Context, reportID id.ReportID) (*report.Instance, error) {
	instance, err := s.reports.SetBackupDownloaded(ctx, reportID)
	if err != nil {
		return nil, translateReportErr(err)
	}
	s.emitAudit(ctx, audit.EventReportBackupFetched, instance.ProjectID, instance.ID.String(), "")
	return instance, nil
}

func translateProjectErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "project not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
}

func translateReportErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	if errors.Is(err, sentinel.ErrSerialization) {
		return dErrors.Wrap(err, dErrors.CodeSerializationConflict, "concurrent write conflict, retry")
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "report store failure")
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, projectID id.ProjectID, subject, reason string) {
	s.log(ctx, string(action),
		"project_id", projectID,
		"subject", subject,
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: requestcontext.Now(ctx),
		UserID:    requestcontext.UserID(ctx),
		ProjectID: projectID.String(),
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
}

// sectionFromText turns one draft field into a narrative section, splitting
// paragraphs on blank lines.
func sectionFromText(sectionID, title, text string) (document.Section, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return document.Section{}, false
	}
	section := document.Section{ID: sectionID, Title: title}
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			section.Blocks = append(section.Blocks, document.Paragraph(para))
		}
	}
	return section, true
}
