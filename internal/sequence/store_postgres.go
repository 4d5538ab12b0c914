package sequence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "attest/pkg/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore allocates numbers from the project_sequences row using a
// single upsert-and-increment statement. The row-level lock taken by the
// UPDATE serializes concurrent allocators for the same project; distinct
// projects do not contend.
type PostgresStore struct {
	db querier
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds allocation to an open transaction so the increment
// commits or rolls back together with the write that consumed the number.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) NextEvidenceNumber(ctx context.Context, projectID id.ProjectID) (int, error) {
	query := `
		INSERT INTO project_sequences (project_id, last_evidence_number, last_report_version)
		VALUES ($1, 1, 0)
		ON CONFLICT (project_id) DO UPDATE SET
			last_evidence_number = project_sequences.last_evidence_number + 1
		RETURNING last_evidence_number
	`
	var next int
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(projectID)).Scan(&next); err != nil {
		return 0, fmt.Errorf("next evidence number: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) NextReportVersion(ctx context.Context, projectID id.ProjectID) (int, error) {
	query := `
		INSERT INTO project_sequences (project_id, last_evidence_number, last_report_version)
		VALUES ($1, 0, 1)
		ON CONFLICT (project_id) DO UPDATE SET
			last_report_version = project_sequences.last_report_version + 1
		RETURNING last_report_version
	`
	var next int
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(projectID)).Scan(&next); err != nil {
		return 0, fmt.Errorf("next report version: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) Get(ctx context.Context, projectID id.ProjectID) (*ProjectSequence, error) {
	query := `
		INSERT INTO project_sequences (project_id, last_evidence_number, last_report_version)
		VALUES ($1, 0, 0)
		ON CONFLICT (project_id) DO UPDATE SET project_id = EXCLUDED.project_id
		RETURNING project_id, last_evidence_number, last_report_version
	`
	var row ProjectSequence
	var rawID uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(projectID)).
		Scan(&rawID, &row.LastEvidenceNumber, &row.LastReportVersion); err != nil {
		return nil, fmt.Errorf("get project sequence: %w", err)
	}
	row.ProjectID = id.ProjectID(rawID)
	return &row, nil
}
