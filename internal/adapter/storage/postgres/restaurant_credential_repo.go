package postgres

import (
	"context"
	"errors"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// RestaurantCredentialRepository implements ports.RestaurantCredentialRepository
// against the restaurant_credentials table.
type RestaurantCredentialRepository struct {
	pool ports.Pool
}

// NewRestaurantCredentialRepository creates a new Postgres-backed restaurant
// credential repository.
func NewRestaurantCredentialRepository(pool ports.Pool) *RestaurantCredentialRepository {
	return &RestaurantCredentialRepository{pool: pool}
}

// GetByAccessKey returns the credential bound to accessKey, or nil if none
// exists.
func (r *RestaurantCredentialRepository) GetByAccessKey(ctx context.Context, accessKey string) (*domain.RestaurantCredential, error) {
	const query = `
		SELECT restaurant_id, access_key, encrypted_secret, active, created_at
		FROM restaurant_credentials
		WHERE access_key = $1`

	var c domain.RestaurantCredential
	err := r.pool.QueryRow(ctx, query, accessKey).Scan(
		&c.RestaurantID, &c.AccessKey, &c.EncryptedSecret, &c.Active, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching restaurant credential: %w", err)
	}
	return &c, nil
}
