package domain

import (
	"time"

	"github.com/google/uuid"
)

// RestaurantPaymentConfig is the per-tenant processor routing row the
// Authorization Worker reads before dispatching an attempt. Version is
// stamped onto EventAuthAttemptStarted so a later config change never
// retroactively changes how a past attempt is explained.
type RestaurantPaymentConfig struct {
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	ProcessorName  string    `json:"processor_name"`
	ProcessorMode  string    `json:"processor_mode"`
	MerchantRef    string    `json:"merchant_ref,omitempty"`
	Version        int       `json:"version"`
	// TreatInvalidRequestAs resolves processor responses that are neither a
	// clean approval nor a clear decline (Stripe's invalid_request_error
	// class): "retryable" (default) records a retryable failure that the
	// queue's redelivery retries, "fatal" fails the request out immediately.
	TreatInvalidRequestAs string    `json:"treat_invalid_request_as,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
