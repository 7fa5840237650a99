package processor

import (
	"context"
	"testing"
	"time"

	"payauth-platform/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProcessor_Authorize_Approves(t *testing.T) {
	p := NewMockProcessor(0)
	result, err := p.Authorize(context.Background(), domain.ProcessorAuthorizeRequest{
		AmountMinor: 1000,
		Currency:    "USD",
		Card:        domain.PaymentData{PAN: "4242424242424242"},
	})
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.NotEmpty(t, result.ProcessorAuthID)
	assert.Equal(t, int64(1000), result.AuthorizedAmount)
}

func TestMockProcessor_Authorize_DeclinesTestPAN(t *testing.T) {
	p := NewMockProcessor(0)
	result, err := p.Authorize(context.Background(), domain.ProcessorAuthorizeRequest{
		Card: domain.PaymentData{PAN: "4000000000000002"},
	})
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, "card_declined", result.DenialCode)
	assert.False(t, result.IsRetryable)
}

func TestMockProcessor_Authorize_RespectsContextCancellation(t *testing.T) {
	p := NewMockProcessor(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Authorize(ctx, domain.ProcessorAuthorizeRequest{Card: domain.PaymentData{PAN: "4242424242424242"}})
	assert.Error(t, err)
}

func TestMockProcessor_Void_Succeeds(t *testing.T) {
	p := NewMockProcessor(0)
	result, err := p.Void(context.Background(), domain.ProcessorVoidRequest{ProcessorAuthID: "mock_abc"})
	require.NoError(t, err)
	assert.True(t, result.Voided)
}

func TestMockProcessor_Name(t *testing.T) {
	p := NewMockProcessor(0)
	assert.Equal(t, "mock", p.Name())
}
