package postgres

import (
	"context"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
)

// AuditRepository implements ports.AuditRepository against the audit_logs
// table.
type AuditRepository struct {
	pool ports.Pool
}

// NewAuditRepository creates a new Postgres-backed audit repository.
func NewAuditRepository(pool ports.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends an audit log entry.
func (r *AuditRepository) Insert(ctx context.Context, entry domain.AuditLog) error {
	const query = `
		INSERT INTO audit_logs (id, actor_id, action, resource, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`

	if _, err := r.pool.Exec(ctx, query, entry.ID, entry.ActorID, entry.Action, entry.Resource, entry.Metadata, entry.CreatedAt); err != nil {
		return fmt.Errorf("inserting audit log entry: %w", err)
	}
	return nil
}

// ListByActor returns the most recent audit entries for actorID.
func (r *AuditRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLog, error) {
	const query = `
		SELECT id, actor_id, action, resource, metadata, created_at
		FROM audit_logs
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit log entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log entries: %w", err)
	}
	return entries, nil
}
