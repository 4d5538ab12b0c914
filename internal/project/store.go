package project

import (
	"context"
	"time"

	id "attest/pkg/domain"
)

// Store persists projects. Implementations return sentinel errors for
// infrastructure facts; services translate them into domain errors.
type Store interface {
	Create(ctx context.Context, p *Project) error
	FindByID(ctx context.Context, projectID id.ProjectID) (*Project, error)

	// ActivateLegalLock flips the one-way lock flag if not already set.
	// Returns the updated project. Idempotent.
	ActivateLegalLock(ctx context.Context, projectID id.ProjectID, at time.Time) (*Project, error)
}
