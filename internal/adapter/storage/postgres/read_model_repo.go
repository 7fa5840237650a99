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

// ReadModelRepository implements ports.ReadModelRepository against the
// auth_request_states table, the materialized view projected synchronously
// from payment_events.
type ReadModelRepository struct {
	pool ports.Pool
}

// NewReadModelRepository creates a new Postgres-backed read model repository.
func NewReadModelRepository(pool ports.Pool) *ReadModelRepository {
	return &ReadModelRepository{pool: pool}
}

// Upsert writes or replaces the materialized row for state.AuthRequestID.
func (r *ReadModelRepository) Upsert(ctx context.Context, tx ports.Pool, state domain.AuthRequestState) error {
	metadata, err := json.Marshal(state.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	const query = `
		INSERT INTO auth_request_states
			(auth_request_id, restaurant_id, payment_token, amount_minor, currency, status, latest_sequence,
			 processor_name, processor_auth_id, authorization_code, authorized_amount,
			 authorized_currency, denial_code, denial_reason, error_message, retry_count,
			 metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (auth_request_id) DO UPDATE SET
			status = EXCLUDED.status,
			latest_sequence = EXCLUDED.latest_sequence,
			processor_name = EXCLUDED.processor_name,
			processor_auth_id = EXCLUDED.processor_auth_id,
			authorization_code = EXCLUDED.authorization_code,
			authorized_amount = EXCLUDED.authorized_amount,
			authorized_currency = EXCLUDED.authorized_currency,
			denial_code = EXCLUDED.denial_code,
			denial_reason = EXCLUDED.denial_reason,
			error_message = EXCLUDED.error_message,
			retry_count = EXCLUDED.retry_count,
			updated_at = EXCLUDED.updated_at
		WHERE auth_request_states.latest_sequence < EXCLUDED.latest_sequence`

	_, err = tx.Exec(ctx, query,
		state.AuthRequestID, state.RestaurantID, state.PaymentToken, state.AmountMinor, state.Currency,
		state.Status, state.LatestSequence, state.ProcessorName, state.ProcessorAuthID,
		state.AuthorizationCode, state.AuthorizedAmount, state.AuthorizedCurrency,
		state.DenialCode, state.DenialReason, state.ErrorMessage, state.RetryCount,
		metadata, state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting read model: %w", err)
	}
	return nil
}

// GetByID returns the materialized state for authRequestID, or nil if it
// does not exist.
func (r *ReadModelRepository) GetByID(ctx context.Context, authRequestID uuid.UUID) (*domain.AuthRequestState, error) {
	const query = `
		SELECT auth_request_id, restaurant_id, payment_token, amount_minor, currency, status, latest_sequence,
			   processor_name, processor_auth_id, authorization_code, authorized_amount,
			   authorized_currency, denial_code, denial_reason, error_message, retry_count,
			   metadata, created_at, updated_at
		FROM auth_request_states
		WHERE auth_request_id = $1`

	state, err := scanAuthRequestState(r.pool.QueryRow(ctx, query, authRequestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching read model: %w", err)
	}
	return state, nil
}

// ListByRestaurant returns the most recent requests for a tenant, newest
// first, for the dashboard.
func (r *ReadModelRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]domain.AuthRequestState, error) {
	const query = `
		SELECT auth_request_id, restaurant_id, payment_token, amount_minor, currency, status, latest_sequence,
			   processor_name, processor_auth_id, authorization_code, authorized_amount,
			   authorized_currency, denial_code, denial_reason, error_message, retry_count,
			   metadata, created_at, updated_at
		FROM auth_request_states
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, restaurantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing read models: %w", err)
	}
	defer rows.Close()

	var states []domain.AuthRequestState
	for rows.Next() {
		state, err := scanAuthRequestState(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning read model: %w", err)
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating read models: %w", err)
	}
	return states, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuthRequestState(row rowScanner) (*domain.AuthRequestState, error) {
	var s domain.AuthRequestState
	var metadata []byte
	if err := row.Scan(
		&s.AuthRequestID, &s.RestaurantID, &s.PaymentToken, &s.AmountMinor, &s.Currency, &s.Status, &s.LatestSequence,
		&s.ProcessorName, &s.ProcessorAuthID, &s.AuthorizationCode, &s.AuthorizedAmount,
		&s.AuthorizedCurrency, &s.DenialCode, &s.DenialReason, &s.ErrorMessage, &s.RetryCount,
		&metadata, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &s, nil
}
