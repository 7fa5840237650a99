package service

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeviceKeyDeriver derives a per-device key from the Token Store's master
// secret, the restaurant id and the client-supplied device id. The Token
// Store mixes this key only into the CreatePaymentToken idempotency
// fingerprint; it does not encrypt or decrypt card data, which is always
// encrypted under the single service AES key.
type DeviceKeyDeriver struct {
	masterSecret []byte
}

// NewDeviceKeyDeriver creates a deriver bound to the Token Store's master
// secret. masterSecret never leaves this process.
func NewDeviceKeyDeriver(masterSecret []byte) *DeviceKeyDeriver {
	return &DeviceKeyDeriver{masterSecret: masterSecret}
}

// Derive returns a 32-byte key scoped to (restaurantID, deviceID), suitable
// as HKDF "info" separation so a compromised device key reveals nothing
// about another device's key.
func (d *DeviceKeyDeriver) Derive(restaurantID, deviceID string) ([]byte, error) {
	salt := []byte(restaurantID)
	info := []byte("payauth-platform/device-key/" + deviceID)

	reader := hkdf.New(sha256.New, d.masterSecret, salt, info)
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving device key: %w", err)
	}
	return key, nil
}
