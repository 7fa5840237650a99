package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operator is a dashboard login identity scoped to one restaurant tenant.
// It is distinct from RestaurantCredential, which authenticates the
// restaurant's own ingress traffic rather than a human logging into the
// dashboard.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
