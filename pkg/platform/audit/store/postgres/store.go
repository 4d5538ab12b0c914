package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "attest/pkg/platform/audit"
	txcontext "attest/pkg/platform/tx"
)

// Store implements audit.Store against the audit_events table. When the
// context carries an open transaction the append joins it, so a compliance
// event commits or rolls back together with the operation it records.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (id, category, occurred_at, user_id, project_id,
			subject, action, reason, request_id, client_ip, user_agent)
		VALUES ($1, $2, $3, NULLIF($4, $5), NULLIF($6, '')::uuid, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(), string(event.Category), event.Timestamp,
		uuid.UUID(event.UserID), uuid.Nil, event.ProjectID,
		event.Subject, event.Action, event.Reason,
		event.RequestID, event.ClientIP, event.UserAgent)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
