package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceKeyDeriver_Deterministic(t *testing.T) {
	d := NewDeviceKeyDeriver([]byte("master-secret-for-tests"))

	k1, err := d.Derive("restaurant-1", "device-1")
	require.NoError(t, err)
	k2, err := d.Derive("restaurant-1", "device-1")
	require.NoError(t, err)

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
}

func TestDeviceKeyDeriver_DistinctPerDevice(t *testing.T) {
	d := NewDeviceKeyDeriver([]byte("master-secret-for-tests"))

	k1, err := d.Derive("restaurant-1", "device-1")
	require.NoError(t, err)
	k2, err := d.Derive("restaurant-1", "device-2")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestDeviceKeyDeriver_DistinctPerRestaurant(t *testing.T) {
	d := NewDeviceKeyDeriver([]byte("master-secret-for-tests"))

	k1, err := d.Derive("restaurant-1", "device-1")
	require.NoError(t, err)
	k2, err := d.Derive("restaurant-2", "device-1")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}
