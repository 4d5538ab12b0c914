package service

import (
	"context"
	"time"

	"attest/internal/evidence"
	"attest/internal/sequence"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// TxStores bundles the stores that must share one unit of work: an evidence
// number is consumed from the sequence in the same transaction that writes
// the item, so a failed insert rolls the counter back with it.
type TxStores struct {
	Evidence evidence.Store
	Sequence sequence.Store
}

// StoreTx provides the transactional boundary for evidence mutations that
// pair a sequence allocation with an evidence write. Implementations may
// wrap a database transaction or, in-memory, a per-project lock.
type StoreTx interface {
	RunInTx(ctx context.Context, projectID id.ProjectID, fn func(stores TxStores) error) error
}

// defaultTxTimeout is the maximum duration for an evidence transaction.
const defaultTxTimeout = 5 * time.Second

// InMemoryTx is the memory-backed transaction boundary. It holds the project
// guard of the evidence store for the whole unit of work, which serializes
// it with other units and with single-item mutations on the same project,
// and restores per-project snapshots when the unit fails. A half-applied
// batch never leaks into reads, and a rollback never discards writes the
// unit did not make.
type InMemoryTx struct {
	items    *evidence.InMemory
	counters *sequence.InMemory
	timeout  time.Duration
}

func NewInMemoryTx(items *evidence.InMemory, counters *sequence.InMemory) *InMemoryTx {
	return &InMemoryTx{items: items, counters: counters}
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

	release := t.items.BeginUnit(projectID)
	defer release()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	itemSnap := t.items.Snapshot(projectID)
	seqSnap := t.counters.Snapshot(projectID)

	if err := fn(TxStores{Evidence: t.items, Sequence: t.counters}); err != nil {
		t.items.Restore(projectID, itemSnap)
		t.counters.Restore(seqSnap)
		return err
	}
	return nil
}
