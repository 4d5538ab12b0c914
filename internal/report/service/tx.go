package service

import (
	"context"
	"sync"
	"time"

	"attest/internal/evidence"
	"attest/internal/project"
	"attest/internal/report"
	"attest/internal/sequence"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// TxStores bundles everything the generate transaction touches. The version
// allocation, the instance insert, the snapshot batch, the evidence locks
// and the legal-lock flag must commit together or not at all.
type TxStores struct {
	Projects project.Store
	Sequence sequence.Store
	Evidence evidence.Store
	Drafts   report.DraftStore
	Reports  report.Store
}

// StoreTx provides the transactional boundary for report generation.
// Implementations may wrap a database transaction or, in-memory, a
// per-project lock with snapshot rollback.
type StoreTx interface {
	RunInTx(ctx context.Context, projectID id.ProjectID, fn func(stores TxStores) error) error
}

// defaultTxTimeout bounds a generate transaction.
const defaultTxTimeout = 10 * time.Second

// InMemoryTx is the memory-backed transaction boundary. A single mutex
// serializes generates with each other; the evidence store's project guard,
// held for the whole unit, keeps single-item mutations out of the window.
type InMemoryTx struct {
	mu       sync.Mutex
	projects *project.InMemory
	counters *sequence.InMemory
	items    *evidence.InMemory
	drafts   *report.InMemoryDraftStore
	reports  *report.InMemoryStore
	timeout  time.Duration
}

func NewInMemoryTx(
	projects *project.InMemory,
	counters *sequence.InMemory,
	items *evidence.InMemory,
	drafts *report.InMemoryDraftStore,
	reports *report.InMemoryStore,
) *InMemoryTx {
	return &InMemoryTx{
		projects: projects,
		counters: counters,
		items:    items,
		drafts:   drafts,
		reports:  reports,
	}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, projectID id.ProjectID, fn func(stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Holding the evidence project guard keeps single-item mutations out of
	// the unit of work, so a rollback only ever undoes the unit's own writes.
	release := t.items.BeginUnit(projectID)
	defer release()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	projectSnap, projectExisted := t.projects.Snapshot(projectID)
	counterSnap := t.counters.Snapshot(projectID)
	itemSnap := t.items.Snapshot(projectID)
	reportSnap := t.reports.Snapshot(projectID)

	err := fn(TxStores{
		Projects: t.projects,
		Sequence: t.counters,
		Evidence: t.items,
		Drafts:   t.drafts,
		Reports:  t.reports,
	})
	if err != nil {
		t.projects.Restore(projectSnap, projectExisted)
		t.counters.Restore(counterSnap)
		t.items.Restore(projectID, itemSnap)
		t.reports.Restore(projectID, reportSnap)
		return err
	}
	return nil
}
