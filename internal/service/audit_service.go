package service

import (
	"context"
	"encoding/json"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditLogService implements ports.AuditService, mirroring every recorded
// action to the structured logger in addition to the audit_logs table so an
// outage of the latter never hides an administrative action from ops.
type AuditLogService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditLogService creates a new audit service. If repo is nil, entries
// are only written to the logger.
func NewAuditLogService(repo ports.AuditRepository, log zerolog.Logger) *AuditLogService {
	return &AuditLogService{repo: repo, log: log}
}

// Record logs actorID's action against resource asynchronously so the
// caller's request path never waits on audit persistence.
func (s *AuditLogService) Record(ctx context.Context, actorID, action, resource string, metadata map[string]string) error {
	encodedMetadata, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	entry := domain.AuditLog{
		ID:        uuid.New(),
		ActorID:   actorID,
		Action:    action,
		Resource:  resource,
		Metadata:  string(encodedMetadata),
		CreatedAt: now(),
	}

	go func() {
		s.log.Info().
			Str("actor_id", entry.ActorID).
			Str("action", entry.Action).
			Str("resource", entry.Resource).
			Msg("audit")

		if s.repo == nil {
			return
		}
		if err := s.repo.Insert(context.Background(), entry); err != nil {
			s.log.Warn().Err(err).Str("action", entry.Action).Msg("failed to persist audit log")
		}
	}()

	return nil
}
