package evidence

import (
	"context"
	"time"

	id "attest/pkg/domain"
)

// Store persists evidence items. Implementations return sentinel errors for
// infrastructure facts; the service translates them into domain errors.
type Store interface {
	Create(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, evidenceID id.EvidenceID) (*Item, error)

	// ListByProject returns items ordered by evidence number ascending.
	// With activeOnly, soft-deleted items are excluded.
	ListByProject(ctx context.Context, projectID id.ProjectID, activeOnly bool) ([]*Item, error)

	// ListIncluded returns active items selected for the report, ordered by
	// evidence number ascending. This is the set a generate call snapshots.
	ListIncluded(ctx context.Context, projectID id.ProjectID) ([]*Item, error)

	// SourceEntryIDs returns the originating-entry identities already
	// represented as evidence, soft-deleted items included. Backfill uses
	// this for idempotency.
	SourceEntryIDs(ctx context.Context, projectID id.ProjectID) (map[string]struct{}, error)

	// Execute atomically validates then mutates one item. The implementation
	// holds its lock (mutex or FOR UPDATE) across both callbacks, so a
	// concurrent generate cannot interleave between check and write.
	Execute(ctx context.Context, evidenceID id.EvidenceID, validate func(*Item) error, mutate func(*Item)) (*Item, error)

	// LockAll freezes every listed item. Monotonic; already-locked items are
	// untouched.
	LockAll(ctx context.Context, evidenceIDs []id.EvidenceID, at time.Time) error
}
