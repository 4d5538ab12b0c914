package evidence

import (
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Item is a numbered, citable unit of supporting material belonging to a
// project.
//
// Invariants:
//   - EvidenceNumber is positive, unique within the project, and assigned in
//     monotonically increasing order. Numbers are never reused or renumbered,
//     even across soft-deletes; gaps are acceptable, duplicates are not.
//   - Locked is one-way. Once an item has been published in a report it
//     freezes: title, description, file reference and the inclusion flag all
//     become read-only. Only an administrative unlock outside this core may
//     reverse it.
//   - An item that has appeared in any report instance is never hard-deleted.
type Item struct {
	ID              id.EvidenceID `json:"id"`
	ProjectID       id.ProjectID  `json:"project_id"`
	EvidenceNumber  int           `json:"evidence_number"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	FileRef         string        `json:"file_ref"`
	SourceEntryID   string        `json:"source_entry_id,omitempty"`
	IncludeInReport bool          `json:"include_in_report"`
	Locked          bool          `json:"locked"`
	DeletedAt       *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsActive reports whether the item is not soft-deleted.
func (i *Item) IsActive() bool { return i.DeletedAt == nil }

// CanModify guards every mutation path. Locked items reject change; the
// one-way transition is enforced here rather than at call sites.
func (i *Item) CanModify() error {
	if i.Locked {
		return dErrors.New(dErrors.CodeLockedEvidence, "evidence is locked by a published report")
	}
	if i.DeletedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "evidence is deleted")
	}
	return nil
}

// ApplyLock freezes the item. Returns true when the call transitioned the
// flag, false when it was already locked.
func (i *Item) ApplyLock(now time.Time) bool {
	if i.Locked {
		return false
	}
	i.Locked = true
	i.UpdatedAt = now
	return true
}

// ApplyInclusion toggles the report-selection flag. Call CanModify first.
func (i *Item) ApplyInclusion(include bool, now time.Time) {
	i.IncludeInReport = include
	i.UpdatedAt = now
}

// ApplyAnnotation updates the caller-editable text fields. Call CanModify
// first.
func (i *Item) ApplyAnnotation(title, description string, now time.Time) {
	i.Title = title
	i.Description = description
	i.UpdatedAt = now
}

// ApplySoftDelete marks the item deleted. The evidence number it consumed
// stays consumed.
func (i *Item) ApplySoftDelete(now time.Time) {
	at := now
	i.DeletedAt = &at
	i.UpdatedAt = now
}

// NewItem validates construction invariants. The evidence number is assigned
// by the caller from the project's sequence inside the same transaction as
// the insert.
func NewItem(evidenceID id.EvidenceID, projectID id.ProjectID, number int, title, description, fileRef string, includeInReport bool, now time.Time) (*Item, error) {
	if number <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "evidence number must be positive")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "evidence title cannot be empty")
	}
	return &Item{
		ID:              evidenceID,
		ProjectID:       projectID,
		EvidenceNumber:  number,
		Title:           title,
		Description:     description,
		FileRef:         fileRef,
		IncludeInReport: includeInReport,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SourceEntry is one element of the source-material feed consumed by
// BackfillFromSource: an artifact (typically an image with its annotation)
// produced by the out-of-scope CRUD surface.
type SourceEntry struct {
	ID                     string
	CreatedAt              time.Time
	Content                string
	FileRef                string
	IncludeInReportDefault bool
}
