// Package service orchestrates evidence management: numbered creation,
// backfill from already-collected source material, annotation, report
// selection and soft deletion. Evidence numbers come from the project's
// sequence inside the same unit of work as the write, which is what keeps
// them duplicate-free without ever renumbering.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"attest/internal/evidence"
	"attest/internal/evidence/metrics"
	"attest/internal/project"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// ProjectStore is the slice of the project store the evidence service needs.
type ProjectStore interface {
	FindByID(ctx context.Context, projectID id.ProjectID) (*project.Project, error)
}

// AuditPublisher receives compliance events. Emission is best-effort; the
// synchronous audit store write happens in the worker pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates evidence operations across the store, the sequence
// and the audit trail.
type Service struct {
	store    evidence.Store
	projects ProjectStore
	tx       StoreTx

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
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

// New constructs a Service.
func New(store evidence.Store, projects ProjectStore, tx StoreTx, opts ...Option) *Service {
	s := &Service{store: store, projects: projects, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the caller-supplied fields of a new evidence item.
type CreateInput struct {
	Title           string
	Description     string
	FileRef         string
	SourceEntryID   string
	IncludeInReport bool
}

// Create allocates the project's next evidence number and inserts the item
// in one transaction. A failed insert rolls the counter back with it.
func (s *Service) Create(ctx context.Context, projectID id.ProjectID, input CreateInput) (*evidence.Item, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence title is required")
	}

	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, translateProjectErr(err)
	}

	now := requestcontext.Now(ctx)
	var created *evidence.Item
	err := s.tx.RunInTx(ctx, projectID, func(stores TxStores) error {
		number, err := stores.Sequence.NextEvidenceNumber(ctx, projectID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate evidence number")
		}
		item, err := evidence.NewItem(id.NewEvidenceID(), projectID, number,
			input.Title, input.Description, input.FileRef, input.IncludeInReport, now)
		if err != nil {
			return err
		}
		item.SourceEntryID = input.SourceEntryID
		if err := stores.Evidence.Create(ctx, item); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeSerializationConflict, "evidence number collided, retry")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evidence")
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EvidenceCreated.Inc()
	}
	s.emitAudit(ctx, audit.EventEvidenceCreated, projectID, created.ID.String(), "")
	return created, nil
}

// BackfillFromSource converts source entries that are not yet represented as
// evidence into numbered items, oldest first. Entries already imported are
// skipped, so repeated calls converge instead of duplicating. Returns the
// number of items created.
func (s *Service) BackfillFromSource(ctx context.Context, projectID id.ProjectID, entries []evidence.SourceEntry) (int, error) {
	start := time.Now()
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return 0, translateProjectErr(err)
	}

	// Oldest entry gets the lowest number; ties break on id so the order is
	// stable across runs.
	sorted := make([]evidence.SourceEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(a, b int) bool {
		if !sorted[a].CreatedAt.Equal(sorted[b].CreatedAt) {
			return sorted[a].CreatedAt.Before(sorted[b].CreatedAt)
		}
		return sorted[a].ID < sorted[b].ID
	})

	now := requestcontext.Now(ctx)
	created := 0
	err := s.tx.RunInTx(ctx, projectID, func(stores TxStores) error {
		existing, err := stores.Evidence.SourceEntryIDs(ctx, projectID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load imported entry ids")
		}
		for _, entry := range sorted {
			if entry.ID == "" {
				continue
			}
			if _, done := existing[entry.ID]; done {
				continue
			}
			number, err := stores.Sequence.NextEvidenceNumber(ctx, projectID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate evidence number")
			}
			title := strings.TrimSpace(entry.Content)
			if title == "" {
				title = "Imported entry " + entry.ID
			}
			item, err := evidence.NewItem(id.NewEvidenceID(), projectID, number,
				title, entry.Content, entry.FileRef, entry.IncludeInReportDefault, now)
			if err != nil {
				return err
			}
			item.SourceEntryID = entry.ID
			if err := stores.Evidence.Create(ctx, item); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store backfilled evidence")
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.EvidenceBackfilled.Add(float64(created))
		s.metrics.ObserveBackfill(start)
	}
	if created > 0 {
		s.emitAudit(ctx, audit.EventEvidenceBackfilled, projectID, "", "")
	}
	s.log(ctx, "evidence backfill complete", "project_id", projectID, "created", created, "seen", len(entries))
	return created, nil
}

// SetInclusion toggles whether the item appears in the next generated
// report. Locked items reject the change.
func (s *Service) SetInclusion(ctx context.Context, evidenceID id.EvidenceID, include bool) (*evidence.Item, error) {
	now := requestcontext.Now(ctx)
	item, err := s.store.Execute(ctx, evidenceID,
		func(item *evidence.Item) error { return item.CanModify() },
		func(item *evidence.Item) { item.ApplyInclusion(include, now) },
	)
	if err != nil {
		return nil, s.translateMutationErr(err, "update evidence inclusion")
	}
	s.emitAudit(ctx, audit.EventEvidenceIncluded, item.ProjectID, item.ID.String(), "")
	return item, nil
}

// Annotate replaces the item's title and description.
func (s *Service) Annotate(ctx context.Context, evidenceID id.EvidenceID, title, description string) (*evidence.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence title is required")
	}
	now := requestcontext.Now(ctx)
	item, err := s.store.Execute(ctx, evidenceID,
		func(item *evidence.Item) error { return item.CanModify() },
		func(item *evidence.Item) { item.ApplyAnnotation(title, description, now) },
	)
	if err != nil {
		return nil, s.translateMutationErr(err, "annotate evidence")
	}
	s.emitAudit(ctx, audit.EventEvidenceAnnotated, item.ProjectID, item.ID.String(), "")
	return item, nil
}

// SoftDelete hides the item from active listings. Its evidence number stays
// consumed; the gap in the numbering is deliberate and visible.
func (s *Service) SoftDelete(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error) {
	now := requestcontext.Now(ctx)
	item, err := s.store.Execute(ctx, evidenceID,
		func(item *evidence.Item) error { return item.CanModify() },
		func(item *evidence.Item) { item.ApplySoftDelete(now) },
	)
	if err != nil {
		return nil, s.translateMutationErr(err, "delete evidence")
	}
	s.emitAudit(ctx, audit.EventEvidenceDeleted, item.ProjectID, item.ID.String(), "")
	return item, nil
}

// Get loads one item, soft-deleted or not.
func (s *Service) Get(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error) {
	item, err := s.store.FindByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence")
	}
	return item, nil
}

// List returns the project's items in evidence-number order.
func (s *Service) List(ctx context.Context, projectID id.ProjectID, activeOnly bool) ([]*evidence.Item, error) {
	items, err := s.store.ListByProject(ctx, projectID, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence")
	}
	return items, nil
}

func (s *Service) translateMutationErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "evidence not found")
	}
	if errors.Is(err, sentinel.ErrSerialization) {
		return dErrors.Wrap(err, dErrors.CodeSerializationConflict, "concurrent write conflict, retry")
	}
	if dErrors.HasCode(err, dErrors.CodeLockedEvidence) {
		if s.metrics != nil {
			s.metrics.LockRejections.Inc()
		}
		return err
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
}

func translateProjectErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "project not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
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
