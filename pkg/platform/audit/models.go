package audit

import (
	"context"
	"time"

	id "attest/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Everything that changes the published-evidence record falls here:
	// report generation, evidence locking, draft snapshots. These require
	// tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	ProjectID string
	Subject   string
	Action    string
	Reason    string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
	// ClientIP and UserAgent record where the action came from; for a legal
	// evidence trail the "who from where" matters as much as the "what".
	ClientIP  string
	UserAgent string
}

type AuditEvent string

const (
	// Evidence events
	EventEvidenceCreated    AuditEvent = "evidence_created"
	EventEvidenceBackfilled AuditEvent = "evidence_backfilled"
	EventEvidenceAnnotated  AuditEvent = "evidence_annotated"
	EventEvidenceIncluded   AuditEvent = "evidence_inclusion_changed"
	EventEvidenceDeleted    AuditEvent = "evidence_soft_deleted"
	EventEvidenceLocked     AuditEvent = "evidence_locked"

	// Report events
	EventDraftUpdated        AuditEvent = "draft_updated"
	EventReportGenerated     AuditEvent = "report_generated"
	EventReportRendered      AuditEvent = "report_rendered"
	EventReportArchived      AuditEvent = "report_archived"
	EventReportBackupFetched AuditEvent = "report_backup_downloaded"

	// Project events
	EventProjectCreated   AuditEvent = "project_created"
	EventLegalLockEnabled AuditEvent = "legal_lock_activated"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
