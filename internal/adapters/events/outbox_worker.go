package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
	defaultClaimTTL     = 30 * time.Second
	defaultMaxRetries   = 5

	deadLetterExhausted = "retry threshold reached before publish"
)

// deliveryOutcome classifies what happened to a single claimed record.
type deliveryOutcome int

const (
	deliveryPublished deliveryOutcome = iota
	deliveryRetried
	deliveryDeadLettered
)

// OutboxWorker drains the transactional outbox: consent, payment, deal and
// account events are written in the same transaction as their aggregate and
// published to the broker from here. Claims carry a token so a crashed
// worker's batch becomes reclaimable after the claim TTL.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if claimTTL <= 0 {
		claimTTL = defaultClaimTTL
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// Run polls the outbox until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processOnce claims one batch under a fresh token and attempts delivery of
// each record. Mark errors are not propagated: an unmarked record simply
// stays claimed until the TTL lapses and a later pass retries it.
func (w *OutboxWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	var published, retried, deadLettered int
	for _, rec := range records {
		switch w.deliver(ctx, rec, claimToken, now) {
		case deliveryPublished:
			published++
		case deliveryRetried:
			retried++
		case deliveryDeadLettered:
			deadLettered++
		}
	}

	w.logger.InfoContext(ctx, "outbox batch processed",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "outbox_process_once",
		"outcome", "success",
		"batch_size", len(records),
		"published_count", published,
		"retried_count", retried,
		"dead_lettered_count", deadLettered,
	)
	return nil
}

func (w *OutboxWorker) deliver(ctx context.Context, rec ports.OutboxRecord, claimToken string, now time.Time) deliveryOutcome {
	if rec.RetryCount >= w.maxRetries {
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, deadLetterExhausted, now)
		return deliveryDeadLettered
	}

	err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
	if err == nil {
		_ = w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now)
		return deliveryPublished
	}

	retries := rec.RetryCount + 1
	if retries >= w.maxRetries {
		w.logger.ErrorContext(ctx, "outbox event moved to dlq",
			"module", "events.outbox_worker",
			"layer", "adapter",
			"operation", "publish_event",
			"outcome", "failure",
			"outbox_id", rec.OutboxID,
			"event_type", rec.EventType,
			"partition_key", rec.PartitionKey,
			"retry_count", retries,
			"error", err,
		)
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, err.Error(), now)
		return deliveryDeadLettered
	}

	w.logger.WarnContext(ctx, "outbox publish failed, retry scheduled",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "publish_event",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"partition_key", rec.PartitionKey,
		"retry_count", retries,
		"error", err,
	)
	_ = w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, err.Error(), now)
	return deliveryRetried
}
