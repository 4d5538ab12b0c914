package main

import (
	"context"
	"database/sql"
	"time"

	"attest/internal/evidence"
	"attest/internal/project"
	"attest/internal/report"
	reportservice "attest/internal/report/service"
	"attest/internal/sequence"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

const defaultReportTxTimeout = 15 * time.Second

// reportPostgresTx runs the generate unit of work inside one serializable
// database transaction, so the version allocation, the instance insert, the
// snapshot batch, the evidence locks and the legal-lock flag are atomic.
type reportPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newReportPostgresTx(db *sql.DB) *reportPostgresTx {
	return &reportPostgresTx{db: db}
}

func (t *reportPostgresTx) RunInTx(ctx context.Context, _ id.ProjectID, fn func(stores reportservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultReportTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = fn(reportservice.TxStores{
		Projects: project.NewPostgresTx(tx),
		Sequence: sequence.NewPostgresTx(tx),
		Evidence: evidence.NewPostgresTx(tx),
		Drafts:   report.NewPostgresDraftStoreTx(tx),
		Reports:  report.NewPostgresTx(tx),
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}
