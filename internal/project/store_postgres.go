package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attest/internal/platform/pgerr"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same store code
// serves pooled and transaction-scoped access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists projects in PostgreSQL.
type PostgresStore struct {
	db querier
}

// NewPostgres constructs a pool-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) Create(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (id, name, reference_number, responsible_party,
			legal_lock_activated, legal_lock_activated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Name, p.ReferenceNumber, p.ResponsibleParty,
		p.LegalLockActivated, p.LegalLockActivatedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, projectID id.ProjectID) (*Project, error) {
	query := `
		SELECT id, name, reference_number, responsible_party,
			legal_lock_activated, legal_lock_activated_at, created_at, updated_at
		FROM projects WHERE id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(projectID)))
}

func (s *PostgresStore) ActivateLegalLock(ctx context.Context, projectID id.ProjectID, at time.Time) (*Project, error) {
	// One-way flag: the WHERE NOT clause makes repeated activation a no-op
	// while still returning the current row.
	query := `
		UPDATE projects
		SET legal_lock_activated = TRUE,
			legal_lock_activated_at = COALESCE(legal_lock_activated_at, $2),
			updated_at = $2
		WHERE id = $1
		RETURNING id, name, reference_number, responsible_party,
			legal_lock_activated, legal_lock_activated_at, created_at, updated_at
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(projectID), at))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Project, error) {
	var p Project
	var rawID uuid.UUID
	err := row.Scan(&rawID, &p.Name, &p.ReferenceNumber, &p.ResponsibleParty,
		&p.LegalLockActivated, &p.LegalLockActivatedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.ID = id.ProjectID(rawID)
	return &p, nil
}
