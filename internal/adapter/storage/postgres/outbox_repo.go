package postgres

import (
	"context"
	"fmt"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
)

// OutboxRepository implements ports.OutboxRepository against the
// payment_outbox table.
type OutboxRepository struct {
	pool ports.Pool
}

// NewOutboxRepository creates a new Postgres-backed outbox repository.
func NewOutboxRepository(pool ports.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Insert writes row inside tx, in the same transaction as the event that
// produced it.
func (r *OutboxRepository) Insert(ctx context.Context, tx ports.Pool, row domain.OutboxRow) error {
	const query = `
		INSERT INTO payment_outbox
			(destination, message_group, dedup_key, payload, created_at, attempt_count, next_attempt_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := tx.Exec(ctx, query,
		row.Destination, row.MessageGroup, row.DedupKey, row.Payload,
		row.CreatedAt, row.AttemptCount, row.NextAttemptAt,
	)
	if err != nil {
		return fmt.Errorf("inserting outbox row: %w", err)
	}
	return nil
}

// ClaimUndelivered returns up to limit rows with processed_at IS NULL and
// next_attempt_at <= now, ordered by id, for the relay to retry.
func (r *OutboxRepository) ClaimUndelivered(ctx context.Context, limit int) ([]domain.OutboxRow, error) {
	const query = `
		SELECT id, destination, message_group, dedup_key, payload, created_at,
			   processed_at, attempt_count, next_attempt_at
		FROM payment_outbox
		WHERE processed_at IS NULL AND next_attempt_at <= now()
		ORDER BY id ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claiming outbox rows: %w", err)
	}
	defer rows.Close()

	var out []domain.OutboxRow
	for rows.Next() {
		var row domain.OutboxRow
		if err := rows.Scan(
			&row.ID, &row.Destination, &row.MessageGroup, &row.DedupKey, &row.Payload,
			&row.CreatedAt, &row.ProcessedAt, &row.AttemptCount, &row.NextAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("scanning outbox row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox rows: %w", err)
	}
	return out, nil
}

// MarkDelivered sets processed_at on successful publish.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id int64) error {
	const query = `UPDATE payment_outbox SET processed_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("marking outbox row delivered: %w", err)
	}
	return nil
}

// MarkAttempt increments attempt_count and sets next_attempt_at after a
// failed publish.
func (r *OutboxRepository) MarkAttempt(ctx context.Context, id int64, nextAttemptAt int64) error {
	const query = `
		UPDATE payment_outbox
		SET attempt_count = attempt_count + 1, next_attempt_at = $2
		WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, time.Unix(nextAttemptAt, 0)); err != nil {
		return fmt.Errorf("marking outbox attempt: %w", err)
	}
	return nil
}
