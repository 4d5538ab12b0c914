package project

import (
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Project is the aggregate root evidence and reports hang off.
//
// Invariants:
//   - Name is non-empty and at most 256 characters
//   - LegalLockActivated is one-way: once true it never resets. It flips the
//     first time a report is generated and marks the project as carrying
//     published legal material.
//   - CreatedAt is immutable after construction
type Project struct {
	ID                   id.ProjectID `json:"id"`
	Name                 string       `json:"name"`
	ReferenceNumber      string       `json:"reference_number"`
	ResponsibleParty     string       `json:"responsible_party"`
	LegalLockActivated   bool         `json:"legal_lock_activated"`
	LegalLockActivatedAt *time.Time   `json:"legal_lock_activated_at,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// ApplyLegalLock flips the one-way legal lock. Returns true when the call
// actually transitioned the flag; repeated calls are no-ops so report
// generation stays idempotent on this path.
func (p *Project) ApplyLegalLock(now time.Time) bool {
	if p.LegalLockActivated {
		return false
	}
	p.LegalLockActivated = true
	at := now
	p.LegalLockActivatedAt = &at
	p.UpdatedAt = now
	return true
}

func NewProject(projectID id.ProjectID, name, referenceNumber, responsibleParty string, now time.Time) (*Project, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "project name cannot be empty")
	}
	if len(name) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "project name must be 256 characters or less")
	}
	return &Project{
		ID:               projectID,
		Name:             name,
		ReferenceNumber:  referenceNumber,
		ResponsibleParty: responsibleParty,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
