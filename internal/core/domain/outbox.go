package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxDestination is the logical downstream queue a row notifies.
type OutboxDestination string

const (
	DestinationAuthRequests OutboxDestination = "payment-auth-requests.fifo"
	DestinationVoidRequests OutboxDestination = "payment-void-requests"
	DestinationInternalAudit OutboxDestination = "internal.audit"
)

// OutboxRow is inserted in the same transaction as the event it notifies
// about. It is delivered by the relay at least once; redelivery is safe
// because the queue layer dedups on DedupKey.
type OutboxRow struct {
	ID            int64             `json:"id"`
	Destination   OutboxDestination `json:"destination"`
	MessageGroup  string            `json:"message_group"`
	DedupKey      string            `json:"dedup_key"`
	Payload       []byte            `json:"payload"`
	CreatedAt     time.Time         `json:"created_at"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
	AttemptCount  int               `json:"attempt_count"`
	NextAttemptAt time.Time         `json:"next_attempt_at"`
}

// AuthRequestQueuedMessage is the payload the outbox carries for the
// auth-requests FIFO queue; the worker's only input.
type AuthRequestQueuedMessage struct {
	AuthRequestID uuid.UUID `json:"auth_request_id"`
	RestaurantID  uuid.UUID `json:"restaurant_id"`
	CreatedAt     int64     `json:"created_at"`
}

// VoidRequestQueuedMessage is the payload carried on the (unordered) void
// queue.
type VoidRequestQueuedMessage struct {
	AuthRequestID uuid.UUID `json:"auth_request_id"`
	RestaurantID  uuid.UUID `json:"restaurant_id"`
}
