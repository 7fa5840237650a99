package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// AuthIdempotencyKey binds a (tenant, client idempotency key) pair to the
// auth_request_id it first produced. A repeat request with a matching
// fingerprint returns the bound id with no new side effects; a mismatched
// fingerprint is a client error (IDEMPOTENCY_CONFLICT).
type AuthIdempotencyKey struct {
	RestaurantID  uuid.UUID `json:"restaurant_id"`
	Key           string    `json:"key"`
	AuthRequestID uuid.UUID `json:"auth_request_id"`
	Fingerprint   string    `json:"fingerprint"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// VoidIdempotencyKey binds a (tenant, client idempotency key) pair on the
// void path, kept separate from AuthIdempotencyKey since they key off a
// different client-supplied value.
type VoidIdempotencyKey struct {
	RestaurantID  uuid.UUID `json:"restaurant_id"`
	Key           string    `json:"key"`
	AuthRequestID uuid.UUID `json:"auth_request_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// TokenIdempotencyKey is the Token Store's equivalent binding for
// CreatePaymentToken.
type TokenIdempotencyKey struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Key          string    `json:"key"`
	TokenID      string    `json:"token_id"`
	Fingerprint  string    `json:"fingerprint"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildFingerprint hashes the semantic fields of an authorize request so a
// repeated idempotency key with a different body can be detected as a
// conflict rather than silently replayed.
func BuildFingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
