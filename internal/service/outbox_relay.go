package service

import (
	"context"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/internal/observability"

	"github.com/rs/zerolog"
)

// outboxRetryIntervals mirrors the exponential-with-plateau backoff used
// elsewhere in this codebase for retrying a failed external delivery.
var outboxRetryIntervals = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second, 1 * time.Minute, 5 * time.Minute}

// OutboxRelay implements ports.OutboxRelay: polls OutboxRepository for
// undelivered rows and republishes them to MessageQueue, backing off on a
// per-row attempt count rather than blocking the whole poll loop on one
// slow destination.
type OutboxRelay struct {
	outbox       ports.OutboxRepository
	queue        ports.MessageQueue
	log          zerolog.Logger
	pollInterval time.Duration
	batchSize    int
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(outbox ports.OutboxRepository, queue ports.MessageQueue, log zerolog.Logger, pollInterval time.Duration, batchSize int) *OutboxRelay {
	return &OutboxRelay{
		outbox:       outbox,
		queue:        queue,
		log:          log,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Run blocks, polling and relaying until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("outbox relay poll failed")
			}
		}
	}
}

func (r *OutboxRelay) relayOnce(ctx context.Context) error {
	rows, err := r.outbox.ClaimUndelivered(ctx, r.batchSize)
	if err != nil {
		return err
	}
	observability.OutboxPendingRows.Set(float64(len(rows)))

	for _, row := range rows {
		// internal.audit rows exist for replay/audit completeness only;
		// nothing consumes them, so the relay marks them delivered on a
		// local no-op "publish" rather than forwarding to the queue.
		if row.Destination == domain.DestinationInternalAudit {
			observability.OutboxRelayedTotal.WithLabelValues(string(row.Destination)).Inc()
			if err := r.outbox.MarkDelivered(ctx, row.ID); err != nil {
				r.log.Error().Err(err).Int64("outbox_id", row.ID).Msg("failed to mark outbox row delivered")
			}
			continue
		}

		err := r.queue.Publish(ctx, string(row.Destination), row.MessageGroup, row.DedupKey, row.Payload)
		if err != nil {
			observability.OutboxRelayFailuresTotal.WithLabelValues(string(row.Destination)).Inc()
			r.log.Warn().
				Err(err).
				Int64("outbox_id", row.ID).
				Str("destination", string(row.Destination)).
				Int("attempt_count", row.AttemptCount).
				Msg("outbox relay publish failed, scheduling retry")

			next := outboxRetryIntervals[len(outboxRetryIntervals)-1]
			if row.AttemptCount < len(outboxRetryIntervals) {
				next = outboxRetryIntervals[row.AttemptCount]
			}
			if markErr := r.outbox.MarkAttempt(ctx, row.ID, now().Add(next).Unix()); markErr != nil {
				r.log.Error().Err(markErr).Int64("outbox_id", row.ID).Msg("failed to mark outbox attempt")
			}
			continue
		}

		observability.OutboxRelayedTotal.WithLabelValues(string(row.Destination)).Inc()
		if err := r.outbox.MarkDelivered(ctx, row.ID); err != nil {
			r.log.Error().Err(err).Int64("outbox_id", row.ID).Msg("failed to mark outbox row delivered")
		}
	}
	return nil
}
