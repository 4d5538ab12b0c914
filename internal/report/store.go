package report

import (
	"context"

	id "attest/pkg/domain"
)

// DraftStore persists the mutable per-project draft.
type DraftStore interface {
	// Upsert replaces the project's draft wholesale.
	Upsert(ctx context.Context, draft *Draft) error

	// FindByProject returns sentinel.ErrNotFound when the project has never
	// saved a draft. Generation treats that as an empty draft.
	FindByProject(ctx context.Context, projectID id.ProjectID) (*Draft, error)
}

// Store persists immutable report instances and their evidence snapshots.
// There is deliberately no update path for content; the only writes after
// CreateInstance are the one-way bookkeeping flags.
type Store interface {
	// CreateInstance inserts the instance and all its evidence snapshots.
	// Callers run this inside the generate transaction.
	CreateInstance(ctx context.Context, instance *Instance, snapshots []EvidenceSnapshot) error

	FindInstance(ctx context.Context, reportID id.ReportID) (*Instance, error)

	// ListByProject returns instances ordered by version number ascending.
	ListByProject(ctx context.Context, projectID id.ProjectID) ([]*Instance, error)

	// ListSnapshots returns the cited evidence of one instance ordered by
	// evidence number ascending.
	ListSnapshots(ctx context.Context, reportID id.ReportID) ([]EvidenceSnapshot, error)

	// SetArchived and SetBackupDownloaded flip the bookkeeping flags.
	// Idempotent; content is untouched.
	SetArchived(ctx context.Context, reportID id.ReportID) (*Instance, error)
	SetBackupDownloaded(ctx context.Context, reportID id.ReportID) (*Instance, error)
}
