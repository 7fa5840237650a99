package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve_Found(t *testing.T) {
	mock := NewMockProcessor(0)
	r := NewRegistry(mock)

	adapter, err := r.Resolve("mock")
	require.NoError(t, err)
	assert.Same(t, mock, adapter)
}

func TestRegistry_Resolve_NotFound(t *testing.T) {
	r := NewRegistry(NewMockProcessor(0))

	_, err := r.Resolve("stripe")
	assert.Error(t, err)
}

func TestRegistry_Resolve_MultipleAdapters(t *testing.T) {
	mock := NewMockProcessor(10 * time.Millisecond)
	r := NewRegistry(mock)

	adapter, err := r.Resolve(mock.Name())
	require.NoError(t, err)
	assert.Equal(t, "mock", adapter.Name())
}
