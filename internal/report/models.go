// Package report holds the versioned legal report artifacts: the mutable
// per-project draft and the immutable, numbered instances generated from it.
package report

import (
	"encoding/json"
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// DraftContent is the structured body of a legal report draft. It is stored
// as JSON and snapshotted verbatim into each generated instance.
type DraftContent struct {
	Summary           string `json:"summary"`
	LegalAnalysis     string `json:"legal_analysis"`
	TechnicalAnalysis string `json:"technical_analysis"`
	Conclusions       string `json:"conclusions"`
}

// Draft is the single mutable report document per project. It carries no
// version history of its own; history exists only as instance snapshots.
type Draft struct {
	ProjectID id.ProjectID `json:"project_id"`
	Content   DraftContent `json:"content"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CloneContent produces a frozen, independent copy of the draft body via a
// JSON round trip. A generated instance must never share memory with the
// live draft, or later edits would reach back into history.
func (d *Draft) CloneContent() (DraftContent, error) {
	raw, err := json.Marshal(d.Content)
	if err != nil {
		return DraftContent{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot draft")
	}
	var out DraftContent
	if err := json.Unmarshal(raw, &out); err != nil {
		return DraftContent{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot draft")
	}
	return out, nil
}

// Instance is one immutable generated report version. Content never changes
// after creation; only the bookkeeping flags may be set afterwards, and both
// are one-way.
type Instance struct {
	ID                 id.ReportID  `json:"id"`
	ProjectID          id.ProjectID `json:"project_id"`
	VersionNumber      int          `json:"version_number"`
	TotalEvidenceCount int          `json:"total_evidence_count"`
	ContentSnapshot    DraftContent `json:"content_snapshot"`
	CreatedAt          time.Time    `json:"created_at"`
	Archived           bool         `json:"archived"`
	BackupDownloaded   bool         `json:"backup_downloaded"`
}

// ApplyArchived marks the instance archived. Returns true on transition,
// false when it already was.
func (r *Instance) ApplyArchived() bool {
	if r.Archived {
		return false
	}
	r.Archived = true
	return true
}

// ApplyBackupDownloaded records that an off-site backup copy was fetched.
func (r *Instance) ApplyBackupDownloaded() bool {
	if r.BackupDownloaded {
		return false
	}
	r.BackupDownloaded = true
	return true
}

// NewInstance validates construction invariants.
func NewInstance(reportID id.ReportID, projectID id.ProjectID, version, evidenceCount int, snapshot DraftContent, now time.Time) (*Instance, error) {
	if version < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "report version must start at 1")
	}
	if evidenceCount < 1 {
		return nil, dErrors.New(dErrors.CodeNoEvidenceSelected, "a report must cite at least one evidence item")
	}
	return &Instance{
		ID:                 reportID,
		ProjectID:          projectID,
		VersionNumber:      version,
		TotalEvidenceCount: evidenceCount,
		ContentSnapshot:    snapshot,
		CreatedAt:          now,
	}, nil
}

// EvidenceSnapshot freezes one cited evidence item as it stood when its
// report version was generated. Later edits to the live item, were any ever
// allowed, would not reach these rows.
type EvidenceSnapshot struct {
	ReportID       id.ReportID   `json:"report_id"`
	EvidenceItemID id.EvidenceID `json:"evidence_item_id"`
	EvidenceNumber int           `json:"evidence_number"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	FileRef        string        `json:"file_ref"`
	IncludedAt     time.Time     `json:"included_at"`
}
