package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tillpoint/tillpoint/internal/jobs"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// idempotency keys older than this are safe to drop.
const idempotencyRetention = 48 * time.Hour

// IdempotencyCleanupJob prunes expired idempotency keys.
type IdempotencyCleanupJob struct {
	store   *shared.IdempotencyStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job.
func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("idempotency_cleanup")
	if err := j.store.Cleanup(ctx, idempotencyRetention); err != nil {
		j.logger.Error("idempotency cleanup", slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}
