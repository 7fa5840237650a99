package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the append-only event types for the AuthRequest
// aggregate.
type EventKind string

const (
	EventAuthRequestCreated  EventKind = "AuthRequestCreated"
	EventAuthAttemptStarted  EventKind = "AuthAttemptStarted"
	EventAuthResponseReceived EventKind = "AuthResponseReceived"
	EventAuthAttemptFailed   EventKind = "AuthAttemptFailed"
	EventAuthVoidRequested   EventKind = "AuthVoidRequested"
	EventAuthRequestExpired  EventKind = "AuthRequestExpired"
)

// Event is a single immutable row in the append-only payment_events log.
// Payload holds the kind-specific fields, JSON-encoded; per-aggregate
// SequenceNumber is gapless and strictly increasing (enforced by Append's
// compare-and-set against ExpectedSequence).
type Event struct {
	EventID         uuid.UUID `json:"event_id"`
	AggregateID     uuid.UUID `json:"aggregate_id"`
	SequenceNumber  int64     `json:"sequence_number"`
	Kind            EventKind `json:"kind"`
	Payload         []byte    `json:"payload"`
	CorrelationID   string    `json:"correlation_id"`
	CausationID     string    `json:"causation_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AuthRequestCreatedPayload is the payload for EventAuthRequestCreated.
type AuthRequestCreatedPayload struct {
	RestaurantID    uuid.UUID         `json:"restaurant_id"`
	PaymentToken    string            `json:"payment_token"`
	AmountMinor     int64             `json:"amount_minor"`
	Currency        string            `json:"currency"`
	IdempotencyKey  string            `json:"idempotency_key"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// AuthAttemptStartedPayload is the payload for EventAuthAttemptStarted.
type AuthAttemptStartedPayload struct {
	WorkerID                     string `json:"worker_id"`
	RestaurantPaymentConfigVersion int  `json:"restaurant_payment_config_version"`
	Attempt                       int    `json:"attempt"`
}

// AuthResponseReceivedPayload is the payload for EventAuthResponseReceived.
// Status is either AUTHORIZED or DENIED; exactly one of the authorized-*
// fields or the denial-* fields is populated.
type AuthResponseReceivedPayload struct {
	Status             AuthRequestStatus `json:"status"`
	ProcessorName      string            `json:"processor_name"`
	ProcessorAuthID    string            `json:"processor_auth_id,omitempty"`
	AuthorizationCode  string            `json:"authorization_code,omitempty"`
	AuthorizedAmount   int64             `json:"authorized_amount,omitempty"`
	AuthorizedCurrency string            `json:"authorized_currency,omitempty"`
	DenialCode         string            `json:"denial_code,omitempty"`
	DenialReason       string            `json:"denial_reason,omitempty"`
	ProcessorMetadata  map[string]string `json:"processor_metadata,omitempty"`
	AuthorizedAt       time.Time         `json:"authorized_at"`
}

// AuthAttemptFailedPayload is the payload for EventAuthAttemptFailed.
type AuthAttemptFailedPayload struct {
	IsRetryable  bool      `json:"is_retryable"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RetryCount   int       `json:"retry_count"`
	NextRetryAt  time.Time `json:"next_retry_at,omitempty"`
}

// AuthVoidRequestedPayload is the payload for EventAuthVoidRequested.
type AuthVoidRequestedPayload struct {
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

// AuthRequestExpiredPayload is the payload for EventAuthRequestExpired.
type AuthRequestExpiredPayload struct {
	Reason string `json:"reason"`
}
