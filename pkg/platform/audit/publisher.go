package audit

import (
	"context"
	"log/slog"
)

// Publisher hands events to the worker's inbox without blocking the request
// path. A full inbox drops the event and logs it; the synchronous response
// to the caller matters more than a best-effort trail entry, and the
// structured log line still records the action.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action,
			"project_id", event.ProjectID,
		)
		return nil
	}
}
