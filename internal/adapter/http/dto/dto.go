package dto

// AuthorizeRequest is the request body for POST /v1/authorize.
type AuthorizeRequest struct {
	PaymentToken   string            `json:"payment_token" binding:"required,safe_id"`
	AmountMinor    int64             `json:"amount_minor" binding:"required,gt=0"`
	Currency       string            `json:"currency" binding:"required,len=3"`
	IdempotencyKey string            `json:"idempotency_key" binding:"required,max=100"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
}

// VoidRequest is the request body for POST /v1/authorize/:id/void.
type VoidRequest struct {
	Reason         string `json:"reason" binding:"required,max=200"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=100"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}

// AuthorizeResponse is the response body for the authorize and void
// endpoints: either the outcome resolved within the request's budget, or
// the caller is pointed at GetStatus.
type AuthorizeResponse struct {
	AuthRequestID string `json:"auth_request_id"`
	Status        string `json:"status"`
	Synchronous   bool   `json:"synchronous"`
}

// AuthRequestStatusResponse is the response body for GET /v1/authorize/:id.
type AuthRequestStatusResponse struct {
	AuthRequestID      string            `json:"auth_request_id"`
	Status             string            `json:"status"`
	AmountMinor        int64             `json:"amount_minor"`
	Currency           string            `json:"currency"`
	ProcessorAuthID    *string           `json:"processor_auth_id,omitempty"`
	AuthorizationCode  *string           `json:"authorization_code,omitempty"`
	AuthorizedAmount   *int64            `json:"authorized_amount,omitempty"`
	AuthorizedCurrency *string           `json:"authorized_currency,omitempty"`
	DenialCode         *string           `json:"denial_code,omitempty"`
	DenialReason       *string           `json:"denial_reason,omitempty"`
	ErrorMessage       *string           `json:"error_message,omitempty"`
	RetryCount         int               `json:"retry_count"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	CreatedAt          string            `json:"created_at"`
	UpdatedAt          string            `json:"updated_at"`
}

// CreatePaymentTokenRequest is the request body for POST /v1/payment-tokens.
type CreatePaymentTokenRequest struct {
	PAN            string `json:"pan" binding:"required,numeric,min=12,max=19"`
	CVV            string `json:"cvv,omitempty" binding:"omitempty,numeric,min=3,max=4"`
	ExpiryMonth    int    `json:"expiry_month" binding:"required,gte=1,lte=12"`
	ExpiryYear     int    `json:"expiry_year" binding:"required,gte=2024"`
	CardBrand      string `json:"card_brand,omitempty"`
	DeviceID       string `json:"device_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=100"`
}

// PaymentTokenResponse is the response body for the payment-token endpoints.
type PaymentTokenResponse struct {
	TokenID     string `json:"token_id"`
	PANLastFour string `json:"pan_last_four"`
	PANBIN      string `json:"pan_bin"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CardBrand   string `json:"card_brand,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// DecryptRequest is the request body for POST /internal/v1/decrypt, served
// over the service-authenticated internal API. The Authorization Worker
// does not use this route; it calls the Token Store in-process.
type DecryptRequest struct {
	TokenID       string `json:"token_id" binding:"required,safe_id"`
	Reason        string `json:"reason" binding:"required,max=200"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// DecryptResponse is the response body for POST /internal/v1/decrypt.
type DecryptResponse struct {
	PAN         string `json:"pan"`
	CVV         string `json:"cvv,omitempty"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CardBrand   string `json:"card_brand,omitempty"`
}

// RotateKeysResponse is the response body for POST /internal/v1/encryption-keys/rotate.
type RotateKeysResponse struct {
	Rotated int `json:"rotated"`
}

// DashboardSummaryResponse is the response body for GET /v1/dashboard/summary.
type DashboardSummaryResponse struct {
	Counts map[string]int64 `json:"counts"`
	Since  string           `json:"since"`
}

// LoginRequest is the request body for POST /v1/dashboard/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for POST /v1/dashboard/login.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
