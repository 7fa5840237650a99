package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentTokenStatus is the lifecycle state of a stored payment token.
type PaymentTokenStatus string

const (
	PaymentTokenStatusActive  PaymentTokenStatus = "ACTIVE"
	PaymentTokenStatusExpired PaymentTokenStatus = "EXPIRED"
	PaymentTokenStatusRevoked PaymentTokenStatus = "REVOKED"
)

// PaymentToken is the Token Store's persisted row. EncryptedPAN and
// EncryptedCVV are AES-256-GCM ciphertext produced under KeyVersion; the
// plaintext never leaves the Token Store process.
type PaymentToken struct {
	TokenID       string             `json:"token_id"`
	RestaurantID  uuid.UUID          `json:"restaurant_id"`
	EncryptedPAN  []byte             `json:"encrypted_pan"`
	EncryptedCVV  []byte             `json:"encrypted_cvv,omitempty"`
	KeyVersion    int                `json:"key_version"`
	PANLastFour   string             `json:"pan_last_four"`
	PANBIN        string             `json:"pan_bin"`
	ExpiryMonth   int                `json:"expiry_month"`
	ExpiryYear    int                `json:"expiry_year"`
	CardBrand     string             `json:"card_brand"`
	DeviceID      string             `json:"device_id,omitempty"`
	Status        PaymentTokenStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// IsUsable reports whether the token may still be handed to the Processor
// Adapter: active, not past its card expiry.
func (t *PaymentToken) IsUsable(now time.Time) bool {
	if t == nil || t.Status != PaymentTokenStatusActive {
		return false
	}
	expiry := time.Date(t.ExpiryYear, time.Month(t.ExpiryMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	return now.Before(expiry)
}

// PaymentData is the plaintext card data accepted by CreatePaymentToken and
// handed, decrypted, to the Processor Adapter. It is never persisted as-is.
type PaymentData struct {
	PAN         string
	CVV         string
	ExpiryMonth int
	ExpiryYear  int
	CardBrand   string
}

// DecryptAudit records every decryption of a stored token's PAN/CVV, who
// requested it and why; append-only, no update or delete path.
type DecryptAudit struct {
	ID            int64     `json:"id"`
	TokenID       string    `json:"token_id"`
	RequestedBy   string    `json:"requested_by"`
	Reason        string    `json:"reason"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}
