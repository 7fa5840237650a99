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

// AuthIdempotencyRepository implements ports.AuthIdempotencyRepository
// against the auth_idempotency_keys table.
type AuthIdempotencyRepository struct {
	pool ports.Pool
}

// NewAuthIdempotencyRepository creates a new Postgres-backed auth
// idempotency repository.
func NewAuthIdempotencyRepository(pool ports.Pool) *AuthIdempotencyRepository {
	return &AuthIdempotencyRepository{pool: pool}
}

// Reserve attempts to bind key to authRequestID/fingerprint inside tx;
// returns the existing binding and false if one already exists.
func (r *AuthIdempotencyRepository) Reserve(ctx context.Context, tx ports.Pool, key domain.AuthIdempotencyKey) (*domain.AuthIdempotencyKey, bool, error) {
	const insert = `
		INSERT INTO auth_idempotency_keys (restaurant_id, key, auth_request_id, fingerprint, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (restaurant_id, key) DO NOTHING`

	tag, err := tx.Exec(ctx, insert, key.RestaurantID, key.Key, key.AuthRequestID, key.Fingerprint, key.CreatedAt, key.ExpiresAt)
	if err != nil {
		return nil, false, fmt.Errorf("reserving idempotency key: %w", err)
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
func (r *AuthIdempotencyRepository) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.AuthIdempotencyKey, error) {
	const query = `
		SELECT restaurant_id, key, auth_request_id, fingerprint, created_at, expires_at
		FROM auth_idempotency_keys
		WHERE restaurant_id = $1 AND key = $2`

	var k domain.AuthIdempotencyKey
	err := r.pool.QueryRow(ctx, query, restaurantID, key).Scan(
		&k.RestaurantID, &k.Key, &k.AuthRequestID, &k.Fingerprint, &k.CreatedAt, &k.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching idempotency key: %w", err)
	}
	return &k, nil
}

// VoidIdempotencyRepository implements ports.VoidIdempotencyRepository
// against the void_idempotency_keys table.
type VoidIdempotencyRepository struct {
	pool ports.Pool
}

// NewVoidIdempotencyRepository creates a new Postgres-backed void
// idempotency repository.
func NewVoidIdempotencyRepository(pool ports.Pool) *VoidIdempotencyRepository {
	return &VoidIdempotencyRepository{pool: pool}
}

// Reserve attempts to bind key to authRequestID inside tx; returns the
// existing binding and false if one already exists.
func (r *VoidIdempotencyRepository) Reserve(ctx context.Context, tx ports.Pool, key domain.VoidIdempotencyKey) (*domain.VoidIdempotencyKey, bool, error) {
	const insert = `
		INSERT INTO void_idempotency_keys (restaurant_id, key, auth_request_id, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (restaurant_id, key) DO NOTHING`

	tag, err := tx.Exec(ctx, insert, key.RestaurantID, key.Key, key.AuthRequestID, key.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("reserving void idempotency key: %w", err)
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
func (r *VoidIdempotencyRepository) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.VoidIdempotencyKey, error) {
	const query = `
		SELECT restaurant_id, key, auth_request_id, created_at
		FROM void_idempotency_keys
		WHERE restaurant_id = $1 AND key = $2`

	var k domain.VoidIdempotencyKey
	err := r.pool.QueryRow(ctx, query, restaurantID, key).Scan(&k.RestaurantID, &k.Key, &k.AuthRequestID, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching void idempotency key: %w", err)
	}
	return &k, nil
}
