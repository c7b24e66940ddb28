package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/shopdesk/internal/observability"
)

// DefaultIdempotencyRetention applies when a cleanup payload omits the retention.
const DefaultIdempotencyRetention = 72 * time.Hour

// Warmer rebuilds cached reports.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// ReportsWarmupJob refreshes the dashboard cache.
type ReportsWarmupJob struct {
	Reports Warmer
	Logger  *slog.Logger
	Metrics *observability.JobMetrics
}

// Handle processes reports:warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskReportsWarmup)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := j.Reports.Warmup(ctx); err != nil {
		return fmt.Errorf("reports warmup: %w", err)
	}
	jobLogger(j.Logger, TaskReportsWarmup).Info("dashboard warmed", slog.Duration("duration", time.Since(start)))
	return nil
}

// Cleaner deletes idempotency keys older than a retention window.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob prunes old idempotency keys.
type IdempotencyCleanupJob struct {
	Store   Cleaner
	Logger  *slog.Logger
	Metrics *observability.JobMetrics
}

// Handle processes idempotency:cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("idempotency cleanup: bad payload: %w", asynq.SkipRetry)
		}
	}
	if payload.OlderThan <= 0 {
		payload.OlderThan = DefaultIdempotencyRetention
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	if err := j.Store.Cleanup(ctx, payload.OlderThan); err != nil {
		return fmt.Errorf("idempotency cleanup: %w", err)
	}
	jobLogger(j.Logger, TaskIdempotencyCleanup).Info("idempotency keys pruned", slog.Duration("older_than", payload.OlderThan))
	return nil
}
