package processor

import (
	"context"
	"fmt"
	"time"

	"payauth-platform/internal/core/domain"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
)

// StripeProcessor implements ports.ProcessorAdapter against the Stripe
// PaymentIntents API, using automatic confirmation so Authorize maps to
// Stripe's "confirm" step and a later void maps to a refund (Stripe intents
// auto-expire rather than supporting a true reversal once captured).
type StripeProcessor struct {
	secretKey string
}

// NewStripeProcessor creates a new Stripe-backed processor adapter scoped
// to a single secret key.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	stripe.Key = secretKey
	return &StripeProcessor{secretKey: secretKey}
}

// Name returns the processor's configuration key.
func (p *StripeProcessor) Name() string {
	return "stripe"
}

// Authorize creates and confirms a Stripe PaymentIntent for the card data
// resolved from the Token Store.
func (p *StripeProcessor) Authorize(ctx context.Context, req domain.ProcessorAuthorizeRequest) (*domain.ProcessorAuthorizeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency),
		Confirm:  stripe.Bool(true),
		PaymentMethodData: &stripe.PaymentIntentPaymentMethodDataParams{
			Type: stripe.String("card"),
			Card: &stripe.PaymentIntentPaymentMethodDataCardParams{
				Number:   stripe.String(req.Card.PAN),
				CVC:      stripe.String(req.Card.CVV),
				ExpMonth: stripe.String(fmt.Sprintf("%d", req.Card.ExpiryMonth)),
				ExpYear:  stripe.String(fmt.Sprintf("%d", req.Card.ExpiryYear)),
			},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent create: %w", err)
	}

	result := &domain.ProcessorAuthorizeResult{
		ProcessorAuthID:    intent.ID,
		AuthorizedAmount:   intent.Amount,
		AuthorizedCurrency: string(intent.Currency),
		RespondedAt:        time.Now(),
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		result.Approved = true
		result.AuthorizationCode = intent.ID
	default:
		result.Approved = false
		result.DenialCode = "processing_error"
		result.DenialReason = fmt.Sprintf("stripe payment intent ended in status %s", intent.Status)
		result.IsRetryable = intent.Status == stripe.PaymentIntentStatusRequiresPaymentMethod
	}

	if intent.LastPaymentError != nil {
		result.DenialCode = string(intent.LastPaymentError.Code)
		result.DenialReason = intent.LastPaymentError.Msg

		if intent.LastPaymentError.Type == stripe.ErrorTypeInvalidRequest {
			result.IsRetryable = req.TreatInvalidRequestAs != "fatal"
		}
	}

	return result, nil
}

// Void reverses a previously authorized charge via a Stripe refund.
func (p *StripeProcessor) Void(ctx context.Context, req domain.ProcessorVoidRequest) (*domain.ProcessorVoidResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.ProcessorAuthID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund create: %w", err)
	}

	return &domain.ProcessorVoidResult{
		Voided:      r.Status == stripe.RefundStatusSucceeded || r.Status == stripe.RefundStatusPending,
		RespondedAt: time.Now(),
	}, nil
}
