package domain

import (
	"time"

	"github.com/google/uuid"
)

// RestaurantCredential is the ingress HMAC identity bound to a tenant: the
// access key travels in the clear on every request, the secret key never
// leaves storage except to verify a signature.
type RestaurantCredential struct {
	RestaurantID      uuid.UUID `json:"restaurant_id"`
	AccessKey         string    `json:"access_key"`
	EncryptedSecret   string    `json:"-"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}
