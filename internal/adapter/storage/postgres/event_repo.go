package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrSequenceConflict is returned by EventRepository.Append when
// expectedSequence no longer matches the aggregate's latest sequence
// number, meaning a concurrent append won the race.
var ErrSequenceConflict = errors.New("postgres: event sequence conflict")

// EventRepository implements ports.EventRepository against the
// payment_events table.
type EventRepository struct {
	pool ports.Pool
}

// NewEventRepository creates a new Postgres-backed event repository.
func NewEventRepository(pool ports.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Append inserts ev if ev.SequenceNumber == expectedSequence+1 for
// ev.AggregateID, inside tx.
func (r *EventRepository) Append(ctx context.Context, tx ports.Pool, ev domain.Event, expectedSequence int64) error {
	if ev.SequenceNumber != expectedSequence+1 {
		return ErrSequenceConflict
	}
	const query = `
		INSERT INTO payment_events
			(event_id, aggregate_id, sequence_number, kind, payload, correlation_id, causation_id, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM payment_events
			WHERE aggregate_id = $2 AND sequence_number >= $3
		)`

	tag, err := tx.Exec(ctx, query,
		ev.EventID, ev.AggregateID, ev.SequenceNumber, ev.Kind, ev.Payload,
		ev.CorrelationID, nullableString(ev.CausationID), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSequenceConflict
	}
	return nil
}

// ListByAggregate returns every event for aggregateID in sequence order.
func (r *EventRepository) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]domain.Event, error) {
	const query = `
		SELECT event_id, aggregate_id, sequence_number, kind, payload, correlation_id, causation_id, created_at
		FROM payment_events
		WHERE aggregate_id = $1
		ORDER BY sequence_number ASC`

	rows, err := r.pool.Query(ctx, query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// LatestSequence returns the highest sequence number recorded for
// aggregateID, or 0 if none exist.
func (r *EventRepository) LatestSequence(ctx context.Context, tx ports.Pool, aggregateID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(MAX(sequence_number), 0) FROM payment_events WHERE aggregate_id = $1`

	var seq int64
	if err := tx.QueryRow(ctx, query, aggregateID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("fetching latest sequence: %w", err)
	}
	return seq, nil
}

func scanEvent(row pgx.Rows) (domain.Event, error) {
	var ev domain.Event
	var causationID *string
	if err := row.Scan(
		&ev.EventID, &ev.AggregateID, &ev.SequenceNumber, &ev.Kind,
		&ev.Payload, &ev.CorrelationID, &causationID, &ev.CreatedAt,
	); err != nil {
		return domain.Event{}, fmt.Errorf("scanning event: %w", err)
	}
	if causationID != nil {
		ev.CausationID = *causationID
	}
	return ev, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarshalPayload is a small helper so services can build domain.Event.Payload
// without importing encoding/json at every call site.
func MarshalPayload(v any) ([]byte, error) {
	return json.Marshal(v)
}
