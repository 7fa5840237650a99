package postgres

import (
	"context"
	"errors"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// OperatorRepository implements ports.OperatorRepository against the
// operators table.
type OperatorRepository struct {
	pool ports.Pool
}

// NewOperatorRepository creates a new Postgres-backed operator repository.
func NewOperatorRepository(pool ports.Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// GetByEmail returns the operator with the given email, or nil if none
// exists.
func (r *OperatorRepository) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	const query = `
		SELECT id, restaurant_id, email, password_hash, created_at
		FROM operators
		WHERE email = $1`

	var o domain.Operator
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&o.ID, &o.RestaurantID, &o.Email, &o.PasswordHash, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching operator: %w", err)
	}
	return &o, nil
}
