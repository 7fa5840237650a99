package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records a single administrative or dashboard action against the
// platform, independent of the Event Log's payment-domain events.
type AuditLog struct {
	ID         uuid.UUID `json:"id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	Metadata   string    `json:"metadata,omitempty"` // JSON-encoded
	CreatedAt  time.Time `json:"created_at"`
}
