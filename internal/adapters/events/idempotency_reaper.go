package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// IdempotencyReaper deletes expired idempotency records in batches. Records
// outlive the client retry window; only entries past expires_at are removed.
type IdempotencyReaper struct {
	logger    *slog.Logger
	store     ports.IdempotencyRepository
	interval  time.Duration
	batchSize int
}

func NewIdempotencyReaper(logger *slog.Logger, store ports.IdempotencyRepository, interval time.Duration, batchSize int) *IdempotencyReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &IdempotencyReaper{
		logger:    logger,
		store:     store,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run executes the periodic reap loop until context cancellation.
func (r *IdempotencyReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		deleted, err := r.store.DeleteExpired(ctx, time.Now().UTC(), r.batchSize)
		if err != nil {
			r.logger.ErrorContext(ctx, "idempotency reap failed",
				"module", "events.idempotency_reaper",
				"layer", "adapter",
				"operation", "delete_expired",
				"outcome", "failure",
				"error", err,
			)
		} else if deleted > 0 {
			r.logger.InfoContext(ctx, "idempotency records reaped",
				"module", "events.idempotency_reaper",
				"layer", "adapter",
				"operation", "delete_expired",
				"outcome", "success",
				"deleted_count", deleted,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
