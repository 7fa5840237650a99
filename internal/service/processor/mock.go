package processor

import (
	"context"
	"time"

	"payauth-platform/internal/core/domain"

	"github.com/google/uuid"
)

// declinedTestPAN triggers a deterministic DENIED response; every other PAN
// is approved. This mirrors the well-known test-card convention (e.g.
// Stripe's 4000000000000002) so integration tests can exercise both
// branches without a real processor account.
const declinedTestPAN = "4000000000000002"

// MockProcessor implements ports.ProcessorAdapter deterministically, with
// no network calls, for local development and integration tests.
type MockProcessor struct {
	latency time.Duration
}

// NewMockProcessor creates a new deterministic mock processor. latency
// simulates a fixed external round-trip.
func NewMockProcessor(latency time.Duration) *MockProcessor {
	return &MockProcessor{latency: latency}
}

// Name returns the processor's configuration key.
func (p *MockProcessor) Name() string {
	return "mock"
}

// Authorize deterministically approves every card except declinedTestPAN.
func (p *MockProcessor) Authorize(ctx context.Context, req domain.ProcessorAuthorizeRequest) (*domain.ProcessorAuthorizeResult, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if req.Card.PAN == declinedTestPAN {
		return &domain.ProcessorAuthorizeResult{
			Approved:    false,
			DenialCode:  "card_declined",
			DenialReason: "the mock processor declines this test card deterministically",
			IsRetryable: false,
			RespondedAt: time.Now(),
		}, nil
	}

	return &domain.ProcessorAuthorizeResult{
		Approved:           true,
		ProcessorAuthID:    "mock_" + uuid.NewString(),
		AuthorizationCode:  uuid.NewString()[:6],
		AuthorizedAmount:   req.AmountMinor,
		AuthorizedCurrency: req.Currency,
		RespondedAt:        time.Now(),
	}, nil
}

// Void deterministically succeeds for any ProcessorAuthID produced by
// Authorize.
func (p *MockProcessor) Void(ctx context.Context, req domain.ProcessorVoidRequest) (*domain.ProcessorVoidResult, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &domain.ProcessorVoidResult{
		Voided:      true,
		RespondedAt: time.Now(),
	}, nil
}
