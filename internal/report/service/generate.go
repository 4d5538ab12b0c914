package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"attest/internal/platform/pgerr"
	"attest/internal/report"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// GenerateResult is what a successful generate returns to the caller.
type GenerateResult struct {
	ReportID       id.ReportID `json:"report_id"`
	VersionNumber  int         `json:"version_number"`
	EvidenceCount  int         `json:"evidence_count"`
	LegalLockNewly bool        `json:"legal_lock_activated"`
}

// Generate freezes the project's current draft and selected evidence into a
// new immutable report version. The whole unit of work commits or rolls
// back together: no partial report, no partial locking, and no version
// number burned on failure.
func (s *Service) Generate(ctx context.Context, projectID id.ProjectID) (*GenerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "report.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", projectID.String()))

	start := time.Now()
	now := requestcontext.Now(ctx)

	var result GenerateResult
	err := s.tx.RunInTx(ctx, projectID, func(stores TxStores) error {
		proj, err := stores.Projects.FindByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "project not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
		}

		// Materialize the counter row up front so the version increment
		// below contends on an existing row.
		if _, err := stores.Sequence.Get(ctx, projectID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to ensure project sequence")
		}

		included, err := stores.Evidence.ListIncluded(ctx, projectID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load selected evidence")
		}
		if len(included) == 0 {
			return dErrors.New(dErrors.CodeNoEvidenceSelected, "no active evidence is selected for the report")
		}

		version, err := stores.Sequence.NextReportVersion(ctx, projectID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate report version")
		}

		snapshot, err := loadDraftSnapshot(ctx, stores.Drafts, projectID)
		if err != nil {
			return err
		}

		instance, err := report.NewInstance(id.NewReportID(), projectID, version, len(included), snapshot, now)
		if err != nil {
			return err
		}

		snapshots := make([]report.EvidenceSnapshot, len(included))
		evidenceIDs := make([]id.EvidenceID, len(included))
		for i, item := range included {
			snapshots[i] = report.EvidenceSnapshot{
				ReportID:       instance.ID,
				EvidenceItemID: item.ID,
				EvidenceNumber: item.EvidenceNumber,
				Title:          item.Title,
				Description:    item.Description,
				FileRef:        item.FileRef,
				IncludedAt:     now,
			}
			evidenceIDs[i] = item.ID
		}

		if err := stores.Reports.CreateInstance(ctx, instance, snapshots); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeSerializationConflict, "concurrent generation produced this version, retry")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist report instance")
		}

		// First generation activates the project's legal lock; the store
		// call is idempotent from then on.
		if !proj.LegalLockActivated {
			if _, err := stores.Projects.ActivateLegalLock(ctx, projectID, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate legal lock")
			}
			result.LegalLockNewly = true
		}

		if err := stores.Evidence.LockAll(ctx, evidenceIDs, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock cited evidence")
		}

		result.ReportID = instance.ID
		result.VersionNumber = instance.VersionNumber
		result.EvidenceCount = instance.TotalEvidenceCount
		return nil
	})
	if err != nil {
		err = translateTxErr(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		if s.metrics != nil {
			s.metrics.GenerateFailures.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
			if dErrors.Retryable(err) {
				s.metrics.SerializationRetry.Inc()
			}
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("version", result.VersionNumber))
	if s.metrics != nil {
		s.metrics.ReportsGenerated.Inc()
		s.metrics.ObserveGenerate(start)
	}
	s.emitAudit(ctx, audit.EventReportGenerated, projectID, result.ReportID.String(), "")
	if result.LegalLockNewly {
		s.emitAudit(ctx, audit.EventLegalLockEnabled, projectID, "", "first report version generated")
	}
	s.emitAudit(ctx, audit.EventEvidenceLocked, projectID, result.ReportID.String(), "")
	s.log(ctx, "report version generated",
		"project_id", projectID,
		"report_id", result.ReportID,
		"version", result.VersionNumber,
		"evidence_count", result.EvidenceCount,
	)
	return &result, nil
}

// loadDraftSnapshot deep-copies the live draft, treating an absent draft as
// empty. The instance must never share memory with the mutable draft.
func loadDraftSnapshot(ctx context.Context, drafts report.DraftStore, projectID id.ProjectID) (report.DraftContent, error) {
	draft, err := drafts.FindByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return report.DraftContent{}, nil
		}
		return report.DraftContent{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load draft")
	}
	return draft.CloneContent()
}

// translateTxErr maps database serialization failures onto the retryable
// domain code; everything else passes through.
func translateTxErr(err error) error {
	if pgerr.IsSerializationFailure(err) {
		return dErrors.Wrap(err, dErrors.CodeSerializationConflict, "concurrent write conflict, retry")
	}
	return err
}
