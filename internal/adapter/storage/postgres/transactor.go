package postgres

import (
	"context"

	"payauth-platform/internal/core/ports"
)

// Transactor implements ports.DBTransactor using a pgxpool.Pool.
type Transactor struct {
	pool ports.Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool ports.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new database transaction.
func (t *Transactor) Begin(ctx context.Context) (ports.Tx, error) {
	return t.pool.Begin(ctx)
}
