package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"attest/internal/platform/pgerr"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresDraftStore persists drafts in PostgreSQL.
type PostgresDraftStore struct {
	db querier
}

func NewPostgresDraftStore(db *sql.DB) *PostgresDraftStore {
	return &PostgresDraftStore{db: db}
}

// NewPostgresDraftStoreTx binds the store to an open transaction.
func NewPostgresDraftStoreTx(tx *sql.Tx) *PostgresDraftStore {
	return &PostgresDraftStore{db: tx}
}

func (s *PostgresDraftStore) Upsert(ctx context.Context, draft *Draft) error {
	content, err := json.Marshal(draft.Content)
	if err != nil {
		return fmt.Errorf("marshal draft content: %w", err)
	}
	query := `
		INSERT INTO legal_report_drafts (project_id, content, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id) DO UPDATE SET
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(draft.ProjectID), content, draft.UpdatedAt); err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

func (s *PostgresDraftStore) FindByProject(ctx context.Context, projectID id.ProjectID) (*Draft, error) {
	query := `SELECT project_id, content, updated_at FROM legal_report_drafts WHERE project_id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(projectID))

	var (
		draft Draft
		pid   uuid.UUID
		raw   []byte
	)
	if err := row.Scan(&pid, &raw, &draft.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find draft: %w", err)
	}
	draft.ProjectID = id.ProjectID(pid)
	if err := json.Unmarshal(raw, &draft.Content); err != nil {
		return nil, fmt.Errorf("decode draft content: %w", err)
	}
	return &draft, nil
}

const instanceColumns = `id, project_id, version_number, total_evidence_count,
	content_snapshot, created_at, archived, backup_downloaded`

// PostgresStore persists report instances and evidence snapshots in
// PostgreSQL.
type PostgresStore struct {
	db querier
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction. The generate
// transaction uses this so the instance insert, the snapshot batch and the
// counter increment commit or roll back together.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) CreateInstance(ctx context.Context, instance *Instance, snapshots []EvidenceSnapshot) error {
	content, err := json.Marshal(instance.ContentSnapshot)
	if err != nil {
		return fmt.Errorf("marshal content snapshot: %w", err)
	}
	query := `
		INSERT INTO report_instances (` + instanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(instance.ID), uuid.UUID(instance.ProjectID),
		instance.VersionNumber, instance.TotalEvidenceCount,
		content, instance.CreatedAt, instance.Archived, instance.BackupDownloaded)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create report instance: %w", err)
	}
	if len(snapshots) == 0 {
		return nil
	}

	// Batch insert with unnest for one round trip instead of one per row.
	ids := make([]uuid.UUID, len(snapshots))
	numbers := make([]int64, len(snapshots))
	titles := make([]string, len(snapshots))
	descriptions := make([]string, len(snapshots))
	fileRefs := make([]string, len(snapshots))
	for i, snap := range snapshots {
		ids[i] = uuid.UUID(snap.EvidenceItemID)
		numbers[i] = int64(snap.EvidenceNumber)
		titles[i] = snap.Title
		descriptions[i] = snap.Description
		fileRefs[i] = snap.FileRef
	}
	batch := `
		INSERT INTO report_evidence_snapshots
			(report_id, evidence_item_id, evidence_number, title, description, file_ref, included_at)
		SELECT $1, unnest($2::uuid[]), unnest($3::bigint[]), unnest($4::text[]),
			unnest($5::text[]), unnest($6::text[]), $7
	`
	_, err = s.db.ExecContext(ctx, batch,
		uuid.UUID(instance.ID), pq.Array(ids), pq.Array(numbers),
		pq.Array(titles), pq.Array(descriptions), pq.Array(fileRefs),
		instance.CreatedAt)
	if err != nil {
		return fmt.Errorf("create evidence snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindInstance(ctx context.Context, reportID id.ReportID) (*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM report_instances WHERE id = $1`
	return scanInstance(s.db.QueryRowContext(ctx, query, uuid.UUID(reportID)))
}

func (s *PostgresStore) ListByProject(ctx context.Context, projectID id.ProjectID) ([]*Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM report_instances
		WHERE project_id = $1
		ORDER BY version_number ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(projectID))
	if err != nil {
		return nil, fmt.Errorf("list report instances: %w", err)
	}
	defer rows.Close()

	var out []*Instance
	for rows.Next() {
		instance, err := scanInstanceRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, reportID id.ReportID) ([]EvidenceSnapshot, error) {
	query := `
		SELECT report_id, evidence_item_id, evidence_number, title, description, file_ref, included_at
		FROM report_evidence_snapshots
		WHERE report_id = $1
		ORDER BY evidence_number ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(reportID))
	if err != nil {
		return nil, fmt.Errorf("list evidence snapshots: %w", err)
	}
	defer rows.Close()

	var out []EvidenceSnapshot
	for rows.Next() {
		var (
			snap     EvidenceSnapshot
			rid, eid uuid.UUID
			included time.Time
		)
		if err := rows.Scan(&rid, &eid, &snap.EvidenceNumber, &snap.Title,
			&snap.Description, &snap.FileRef, &included); err != nil {
			return nil, fmt.Errorf("scan evidence snapshot: %w", err)
		}
		snap.ReportID = id.ReportID(rid)
		snap.EvidenceItemID = id.EvidenceID(eid)
		snap.IncludedAt = included
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		// Distinguish "no snapshots" from "no such report".
		if _, err := s.FindInstance(ctx, reportID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) SetArchived(ctx context.Context, reportID id.ReportID) (*Instance, error) {
	query := `
		UPDATE report_instances
		SET archived = TRUE
		WHERE id = $1
		RETURNING ` + instanceColumns
	return scanInstance(s.db.QueryRowContext(ctx, query, uuid.UUID(reportID)))
}

func (s *PostgresStore) SetBackupDownloaded(ctx context.Context, reportID id.ReportID) (*Instance, error) {
	query := `
		UPDATE report_instances
		SET backup_downloaded = TRUE
		WHERE id = $1
		RETURNING ` + instanceColumns
	return scanInstance(s.db.QueryRowContext(ctx, query, uuid.UUID(reportID)))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row *sql.Row) (*Instance, error) {
	instance, err := scanInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return instance, nil
}

func scanInstanceRow(rows *sql.Rows) (*Instance, error) {
	return scanInto(rows)
}

func scanInto(scanner rowScanner) (*Instance, error) {
	var (
		instance Instance
		rid, pid uuid.UUID
		raw      []byte
	)
	err := scanner.Scan(&rid, &pid, &instance.VersionNumber,
		&instance.TotalEvidenceCount, &raw, &instance.CreatedAt,
		&instance.Archived, &instance.BackupDownloaded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan report instance: %w", err)
	}
	instance.ID = id.ReportID(rid)
	instance.ProjectID = id.ProjectID(pid)
	if err := json.Unmarshal(raw, &instance.ContentSnapshot); err != nil {
		return nil, fmt.Errorf("decode content snapshot: %w", err)
	}
	return &instance, nil
}
