package sequence

import (
	id "attest/pkg/domain"
)

// ProjectSequence is the per-project counter row. Both counters only ever
// increase; numbers handed out are never reused even when the item that
// consumed them is later soft-deleted.
type ProjectSequence struct {
	ProjectID          id.ProjectID `json:"project_id"`
	LastEvidenceNumber int          `json:"last_evidence_number"`
	LastReportVersion  int          `json:"last_report_version"`
}
