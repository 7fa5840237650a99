package postgres

import (
	"context"
	"errors"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenIdempotencyRepository implements ports.TokenIdempotencyRepository
// against the token_idempotency_keys table.
type TokenIdempotencyRepository struct {
	pool ports.Pool
}

// NewTokenIdempotencyRepository creates a new Postgres-backed token
// idempotency repository.
func NewTokenIdempotencyRepository(pool ports.Pool) *TokenIdempotencyRepository {
	return &TokenIdempotencyRepository{pool: pool}
}

// Reserve attempts to bind key to tokenID/fingerprint inside tx; returns the
// existing binding and false if one already exists.
func (r *TokenIdempotencyRepository) Reserve(ctx context.Context, tx ports.Pool, key domain.TokenIdempotencyKey) (*domain.TokenIdempotencyKey, bool, error) {
	const insert = `
		INSERT INTO token_idempotency_keys (restaurant_id, key, token_id, fingerprint, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (restaurant_id, key) DO NOTHING`

	tag, err := tx.Exec(ctx, insert, key.RestaurantID, key.Key, key.TokenID, key.Fingerprint, key.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("reserving token idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return &key, true, nil
	}

	existing, err := r.Get(ctx, key.RestaurantID, key.Key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get returns the binding for (restaurantID, key), or nil if none exists.
func (r *TokenIdempotencyRepository) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.TokenIdempotencyKey, error) {
	const query = `
		SELECT restaurant_id, key, token_id, fingerprint, created_at
		FROM token_idempotency_keys
		WHERE restaurant_id = $1 AND key = $2`

	var k domain.TokenIdempotencyKey
	err := r.pool.QueryRow(ctx, query, restaurantID, key).Scan(&k.RestaurantID, &k.Key, &k.TokenID, &k.Fingerprint, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching token idempotency key: %w", err)
	}
	return &k, nil
}
