package worker

import (
	"context"
	"log/slog"

	audit "attest/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them, optionally
// fanning out to a secondary sink (e.g. the Kafka publisher). Persistence
// failures are logged, not fatal: the audit trail degrades before it takes
// the service down.
type Worker struct {
	store  audit.Store
	sink   audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

type Option func(*Worker)

// WithSink adds a secondary destination that receives every event after the
// primary store accepted it.
func WithSink(sink audit.Store) Option {
	return func(w *Worker) {
		w.sink = sink
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"project_id", event.ProjectID,
					"error", err,
				)
				continue
			}
			if w.sink != nil {
				if err := w.sink.Append(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "audit sink publish failed",
						"action", event.Action,
						"project_id", event.ProjectID,
						"error", err,
					)
				}
			}
		}
	}
}
