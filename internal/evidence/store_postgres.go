package evidence

import (
	"context"
	"database/sql"
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

const evidenceColumns = `id, project_id, evidence_number, title, description,
	file_ref, source_entry_id, include_in_report, locked, deleted_at,
	created_at, updated_at`

// PostgresStore persists evidence items in PostgreSQL.
type PostgresStore struct {
	db querier
	// pool is set on pool-backed stores so Execute can open its own
	// transaction; tx-bound stores run inside the caller's transaction.
	pool *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, pool: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO evidence_items (` + evidenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(item.ID), uuid.UUID(item.ProjectID), item.EvidenceNumber,
		item.Title, item.Description, item.FileRef, item.SourceEntryID,
		item.IncludeInReport, item.Locked, item.DeletedAt,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, evidenceID id.EvidenceID) (*Item, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_items WHERE id = $1`
	return scanItem(s.db.QueryRowContext(ctx, query, uuid.UUID(evidenceID)))
}

func (s *PostgresStore) ListByProject(ctx context.Context, projectID id.ProjectID, activeOnly bool) ([]*Item, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_items
		WHERE project_id = $1 AND ($2 = FALSE OR deleted_at IS NULL)
		ORDER BY evidence_number ASC`
	return s.queryItems(ctx, query, uuid.UUID(projectID), activeOnly)
}

func (s *PostgresStore) ListIncluded(ctx context.Context, projectID id.ProjectID) ([]*Item, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_items
		WHERE project_id = $1 AND deleted_at IS NULL AND include_in_report = TRUE
		ORDER BY evidence_number ASC`
	return s.queryItems(ctx, query, uuid.UUID(projectID))
}

func (s *PostgresStore) SourceEntryIDs(ctx context.Context, projectID id.ProjectID) (map[string]struct{}, error) {
	query := `SELECT source_entry_id FROM evidence_items
		WHERE project_id = $1 AND source_entry_id IS NOT NULL`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(projectID))
	if err != nil {
		return nil, fmt.Errorf("list source entry ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var entryID string
		if err := rows.Scan(&entryID); err != nil {
			return nil, fmt.Errorf("scan source entry id: %w", err)
		}
		out[entryID] = struct{}{}
	}
	return out, rows.Err()
}

// Execute loads the item FOR UPDATE, runs the validate and mutate callbacks
// under that row lock, and persists the result. On a pool-backed store it
// owns its transaction; tx-bound stores join the caller's.
func (s *PostgresStore) Execute(ctx context.Context, evidenceID id.EvidenceID, validate func(*Item) error, mutate func(*Item)) (*Item, error) {
	if s.pool == nil {
		return s.executeLocked(ctx, s.db, evidenceID, validate, mutate)
	}

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin evidence tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	item, err := s.executeLocked(ctx, tx, evidenceID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		if pgerr.IsSerializationFailure(err) {
			return nil, sentinel.ErrSerialization
		}
		return nil, fmt.Errorf("commit evidence tx: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) executeLocked(ctx context.Context, q querier, evidenceID id.EvidenceID, validate func(*Item) error, mutate func(*Item)) (*Item, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_items WHERE id = $1 FOR UPDATE`
	item, err := scanItem(q.QueryRowContext(ctx, query, uuid.UUID(evidenceID)))
	if err != nil {
		return nil, err
	}

	if err := validate(item); err != nil {
		return nil, err
	}
	mutate(item)

	update := `
		UPDATE evidence_items
		SET title = $2, description = $3, file_ref = $4, include_in_report = $5,
			locked = $6, deleted_at = $7, updated_at = $8
		WHERE id = $1
	`
	if _, err := q.ExecContext(ctx, update,
		uuid.UUID(item.ID), item.Title, item.Description, item.FileRef,
		item.IncludeInReport, item.Locked, item.DeletedAt, item.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update evidence: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) LockAll(ctx context.Context, evidenceIDs []id.EvidenceID, at time.Time) error {
	if len(evidenceIDs) == 0 {
		return nil
	}
	raw := make([]uuid.UUID, len(evidenceIDs))
	for i, evidenceID := range evidenceIDs {
		raw[i] = uuid.UUID(evidenceID)
	}
	// One batched update instead of a round trip per item.
	query := `
		UPDATE evidence_items
		SET locked = TRUE, updated_at = $2
		WHERE id = ANY($1::uuid[]) AND locked = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(raw), at); err != nil {
		return fmt.Errorf("lock evidence batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		item, err := scanItemRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row *sql.Row) (*Item, error) {
	item, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return item, err
}

func scanItemRows(rows *sql.Rows) (*Item, error) {
	return scanInto(rows)
}

func scanInto(sc scanner) (*Item, error) {
	var item Item
	var rawID, rawProjectID uuid.UUID
	var sourceEntryID sql.NullString
	err := sc.Scan(&rawID, &rawProjectID, &item.EvidenceNumber, &item.Title,
		&item.Description, &item.FileRef, &sourceEntryID, &item.IncludeInReport,
		&item.Locked, &item.DeletedAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.ID = id.EvidenceID(rawID)
	item.ProjectID = id.ProjectID(rawProjectID)
	item.SourceEntryID = sourceEntryID.String
	return &item, nil
}
