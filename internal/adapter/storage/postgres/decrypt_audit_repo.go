package postgres

import (
	"context"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
)

// DecryptAuditRepository implements ports.DecryptAuditRepository against
// the decrypt_audit_log table; append-only, no update or delete path.
type DecryptAuditRepository struct {
	pool ports.Pool
}

// NewDecryptAuditRepository creates a new Postgres-backed decrypt audit
// repository.
func NewDecryptAuditRepository(pool ports.Pool) *DecryptAuditRepository {
	return &DecryptAuditRepository{pool: pool}
}

// Insert appends a decrypt audit entry.
func (r *DecryptAuditRepository) Insert(ctx context.Context, entry domain.DecryptAudit) error {
	const query = `
		INSERT INTO decrypt_audit_log (token_id, requested_by, reason, correlation_id, created_at)
		VALUES ($1,$2,$3,$4,$5)`

	if _, err := r.pool.Exec(ctx, query, entry.TokenID, entry.RequestedBy, entry.Reason, entry.CorrelationID, entry.CreatedAt); err != nil {
		return fmt.Errorf("inserting decrypt audit entry: %w", err)
	}
	return nil
}

// ListByToken returns the most recent decrypt audit entries for tokenID.
func (r *DecryptAuditRepository) ListByToken(ctx context.Context, tokenID string, limit int) ([]domain.DecryptAudit, error) {
	const query = `
		SELECT id, token_id, requested_by, reason, correlation_id, created_at
		FROM decrypt_audit_log
		WHERE token_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, tokenID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing decrypt audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.DecryptAudit
	for rows.Next() {
		var e domain.DecryptAudit
		if err := rows.Scan(&e.ID, &e.TokenID, &e.RequestedBy, &e.Reason, &e.CorrelationID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning decrypt audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decrypt audit entries: %w", err)
	}
	return entries, nil
}
