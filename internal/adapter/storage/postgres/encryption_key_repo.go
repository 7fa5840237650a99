package postgres

import (
	"context"
	"fmt"

	"payauth-platform/internal/core/ports"
)

// EncryptionKeyRepository implements ports.EncryptionKeyRepository against
// the encryption_key_state table, a single-row table tracking which AES key
// version the Token Store currently encrypts new tokens under.
type EncryptionKeyRepository struct {
	pool ports.Pool
}

// NewEncryptionKeyRepository creates a new Postgres-backed encryption key
// repository.
func NewEncryptionKeyRepository(pool ports.Pool) *EncryptionKeyRepository {
	return &EncryptionKeyRepository{pool: pool}
}

// ActiveVersion returns the key version new tokens should be encrypted
// under.
func (r *EncryptionKeyRepository) ActiveVersion(ctx context.Context) (int, error) {
	const query = `SELECT active_version FROM encryption_key_state WHERE id = 1`

	var version int
	if err := r.pool.QueryRow(ctx, query).Scan(&version); err != nil {
		return 0, fmt.Errorf("fetching active key version: %w", err)
	}
	return version, nil
}

// SetActiveVersion advances the active key version, e.g. once a rotation
// job has re-encrypted every existing token.
func (r *EncryptionKeyRepository) SetActiveVersion(ctx context.Context, version int) error {
	const query = `UPDATE encryption_key_state SET active_version = $1 WHERE id = 1`
	if _, err := r.pool.Exec(ctx, query, version); err != nil {
		return fmt.Errorf("setting active key version: %w", err)
	}
	return nil
}
