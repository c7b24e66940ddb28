package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// Enqueuer is the subset of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EventEnqueuer turns committed domain events into background tasks.
type EventEnqueuer struct {
	client  Enqueuer
	logger  *slog.Logger
	timeout time.Duration
}

// NewEventEnqueuer builds an EventEnqueuer.
func NewEventEnqueuer(client Enqueuer, logger *slog.Logger) *EventEnqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventEnqueuer{client: client, logger: logger, timeout: 2 * time.Second}
}

// Publish implements shared.EventPublisher. Enqueue failures are logged; the
// originating request has already committed.
func (e *EventEnqueuer) Publish(ctx context.Context, evt shared.Event) {
	if e == nil || e.client == nil {
		return
	}
	var (
		task *asynq.Task
		err  error
	)
	switch evt.Type {
	case shared.EventInvoiceCreated, shared.EventInvoicePayment:
		task, err = NewInvoicePDFTask(evt.EntityID)
	default:
		return
	}
	if err != nil {
		e.logger.Warn("build task", slog.String("event", evt.Type), slog.Any("error", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return
		}
		e.logger.Warn("enqueue task", slog.String("type", task.Type()), slog.String("entity_id", evt.EntityID), slog.Any("error", err))
	}
}
