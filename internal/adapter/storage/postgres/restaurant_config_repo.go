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

// RestaurantConfigRepository implements ports.RestaurantConfigRepository
// against the restaurant_payment_configs table.
type RestaurantConfigRepository struct {
	pool ports.Pool
}

// NewRestaurantConfigRepository creates a new Postgres-backed restaurant
// payment config repository.
func NewRestaurantConfigRepository(pool ports.Pool) *RestaurantConfigRepository {
	return &RestaurantConfigRepository{pool: pool}
}

// GetByRestaurantID returns the routing config for restaurantID, or nil if
// none has been configured.
func (r *RestaurantConfigRepository) GetByRestaurantID(ctx context.Context, restaurantID uuid.UUID) (*domain.RestaurantPaymentConfig, error) {
	const query = `
		SELECT restaurant_id, processor_name, processor_mode, merchant_ref,
			treat_invalid_request_as, version, created_at, updated_at
		FROM restaurant_payment_configs
		WHERE restaurant_id = $1`

	var cfg domain.RestaurantPaymentConfig
	err := r.pool.QueryRow(ctx, query, restaurantID).Scan(
		&cfg.RestaurantID, &cfg.ProcessorName, &cfg.ProcessorMode, &cfg.MerchantRef,
		&cfg.TreatInvalidRequestAs, &cfg.Version, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching restaurant payment config: %w", err)
	}
	return &cfg, nil
}

// Upsert creates or updates cfg, bumping its version on update.
func (r *RestaurantConfigRepository) Upsert(ctx context.Context, cfg domain.RestaurantPaymentConfig) error {
	const query = `
		INSERT INTO restaurant_payment_configs
			(restaurant_id, processor_name, processor_mode, merchant_ref, treat_invalid_request_as, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,1,now(),now())
		ON CONFLICT (restaurant_id) DO UPDATE SET
			processor_name = EXCLUDED.processor_name,
			processor_mode = EXCLUDED.processor_mode,
			merchant_ref = EXCLUDED.merchant_ref,
			treat_invalid_request_as = EXCLUDED.treat_invalid_request_as,
			version = restaurant_payment_configs.version + 1,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, cfg.RestaurantID, cfg.ProcessorName, cfg.ProcessorMode, cfg.MerchantRef, cfg.TreatInvalidRequestAs); err != nil {
		return fmt.Errorf("upserting restaurant payment config: %w", err)
	}
	return nil
}
