package main

import (
	"context"
	"database/sql"
	"time"

	"attest/internal/evidence"
	evidenceservice "attest/internal/evidence/service"
	"attest/internal/sequence"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

const defaultEvidenceTxTimeout = 5 * time.Second

// evidencePostgresTx binds the evidence unit of work to a real database
// transaction: the number allocation and the item insert commit together.
type evidencePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newEvidencePostgresTx(db *sql.DB) *evidencePostgresTx {
	return &evidencePostgresTx{db: db}
}

func (t *evidencePostgresTx) RunInTx(ctx context.Context, _ id.ProjectID, fn func(stores evidenceservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultEvidenceTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = fn(evidenceservice.TxStores{
		Evidence: evidence.NewPostgresTx(tx),
		Sequence: sequence.NewPostgresTx(tx),
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}
