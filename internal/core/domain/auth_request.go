package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthRequestStatus is the lifecycle state of an authorization request.
type AuthRequestStatus string

const (
	AuthRequestStatusUnspecified AuthRequestStatus = "UNSPECIFIED"
	AuthRequestStatusPending     AuthRequestStatus = "PENDING"
	AuthRequestStatusProcessing  AuthRequestStatus = "PROCESSING"
	AuthRequestStatusAuthorized  AuthRequestStatus = "AUTHORIZED"
	AuthRequestStatusDenied      AuthRequestStatus = "DENIED"
	AuthRequestStatusFailed      AuthRequestStatus = "FAILED"
	AuthRequestStatusExpired     AuthRequestStatus = "EXPIRED"
	AuthRequestStatusVoided      AuthRequestStatus = "VOIDED"
)

// IsTerminal reports whether the status is a final, externally observable
// outcome (PROCESSING is the one internal-observable non-terminal state
// besides PENDING).
func (s AuthRequestStatus) IsTerminal() bool {
	switch s {
	case AuthRequestStatusAuthorized, AuthRequestStatusDenied,
		AuthRequestStatusFailed, AuthRequestStatusExpired, AuthRequestStatusVoided:
		return true
	default:
		return false
	}
}

// AuthRequestState is the read-model row materialized by folding the event
// log for one auth_request_id. It is the only thing GetStatus ever reads.
type AuthRequestState struct {
	AuthRequestID       uuid.UUID         `json:"auth_request_id"`
	RestaurantID        uuid.UUID         `json:"restaurant_id"`
	PaymentToken        string            `json:"-"`
	AmountMinor         int64             `json:"amount_minor"`
	Currency            string            `json:"currency"`
	Status              AuthRequestStatus `json:"status"`
	LatestSequence      int64             `json:"latest_sequence"`
	ProcessorName       *string           `json:"processor_name,omitempty"`
	ProcessorAuthID     *string           `json:"processor_auth_id,omitempty"`
	AuthorizationCode   *string           `json:"authorization_code,omitempty"`
	AuthorizedAmount    *int64            `json:"authorized_amount,omitempty"`
	AuthorizedCurrency  *string           `json:"authorized_currency,omitempty"`
	DenialCode          *string           `json:"denial_code,omitempty"`
	DenialReason        *string           `json:"denial_reason,omitempty"`
	ErrorMessage        *string           `json:"error_message,omitempty"`
	RetryCount          int               `json:"retry_count"`
	// VoidRequested is set the instant AuthVoidRequested is folded in. The
	// same fold moves a non-terminal status to PROCESSING and leaves a
	// terminal one (AUTHORIZED) unchanged. The worker consults this to
	// detect a void that arrived before any AuthResponseReceived.
	VoidRequested       bool              `json:"void_requested,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// IsOwnedBy reports whether the given tenant owns this request. Ingress uses
// this (rather than a raw existence check) so that unknown id and foreign id
// are indistinguishable to the caller.
func (s *AuthRequestState) IsOwnedBy(restaurantID uuid.UUID) bool {
	return s != nil && s.RestaurantID == restaurantID
}

// PaymentTokenID returns the Token Store id this request authorizes
// against.
func (s *AuthRequestState) PaymentTokenID() string {
	return s.PaymentToken
}
