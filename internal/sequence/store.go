package sequence

import (
	"context"

	id "attest/pkg/domain"
)

// Store hands out per-project monotonic numbers. Each Next* call returns a
// value strictly greater than any previously returned for that project, even
// under concurrent callers. The counter row is created lazily on first use.
//
// Allocation must happen inside the same transaction as the write that
// consumes the number: callers run both against a transaction-scoped Store
// so a rollback also rolls back the increment and no number is burned.
type Store interface {
	NextEvidenceNumber(ctx context.Context, projectID id.ProjectID) (int, error)
	NextReportVersion(ctx context.Context, projectID id.ProjectID) (int, error)

	// Get returns the current counter row without advancing it, creating the
	// all-zero row if missing.
	Get(ctx context.Context, projectID id.ProjectID) (*ProjectSequence, error)
}
