package domain

import (
	"github.com/google/uuid"

	dErrors "attest/pkg/domain-errors"
)

// Typed UUID identifiers for the core aggregates. Distinct types make it a
// compile error to pass a report ID where a project ID is expected.
type (
	// ProjectID identifies a property project that owns evidence and reports.
	ProjectID uuid.UUID

	// EvidenceID identifies a single evidence item.
	EvidenceID uuid.UUID

	// ReportID identifies an immutable report instance.
	ReportID uuid.UUID

	// UserID identifies the calling user as resolved by the identity collaborator.
	UserID uuid.UUID
)

func (id ProjectID) String() string  { return uuid.UUID(id).String() }
func (id EvidenceID) String() string { return uuid.UUID(id).String() }
func (id ReportID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }

func (id ProjectID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewProjectID returns a fresh random project ID.
func NewProjectID() ProjectID { return ProjectID(uuid.New()) }

// NewEvidenceID returns a fresh random evidence ID.
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

// NewReportID returns a fresh random report ID.
func NewReportID() ReportID { return ReportID(uuid.New()) }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseProjectID validates raw input at a trust boundary.
func ParseProjectID(raw string) (ProjectID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return ProjectID{}, err
	}
	return ProjectID(parsed), nil
}

// ParseEvidenceID validates raw input at a trust boundary.
func ParseEvidenceID(raw string) (EvidenceID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return EvidenceID{}, err
	}
	return EvidenceID(parsed), nil
}

// ParseReportID validates raw input at a trust boundary.
func ParseReportID(raw string) (ReportID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return ReportID{}, err
	}
	return ReportID(parsed), nil
}

// ParseUserID validates raw input at a trust boundary.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}
