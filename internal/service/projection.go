package service

import (
	"encoding/json"
	"fmt"
	"time"

	"payauth-platform/internal/core/domain"
)

// projectEvent folds one event onto the current read-model state (nil for
// the first event of an aggregate) and returns the updated state. It is a
// pure function so the event log's projection can be unit tested without a
// database.
func projectEvent(state *domain.AuthRequestState, ev domain.Event) (*domain.AuthRequestState, error) {
	switch ev.Kind {
	case domain.EventAuthRequestCreated:
		var p domain.AuthRequestCreatedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshaling AuthRequestCreated payload: %w", err)
		}
		return &domain.AuthRequestState{
			AuthRequestID:  ev.AggregateID,
			RestaurantID:   p.RestaurantID,
			PaymentToken:   p.PaymentToken,
			AmountMinor:    p.AmountMinor,
			Currency:       p.Currency,
			Status:         domain.AuthRequestStatusPending,
			LatestSequence: ev.SequenceNumber,
			Metadata:       p.Metadata,
			CreatedAt:      ev.CreatedAt,
			UpdatedAt:      ev.CreatedAt,
		}, nil

	case domain.EventAuthAttemptStarted:
		if state == nil {
			return nil, fmt.Errorf("AuthAttemptStarted with no prior state")
		}
		next := *state
		next.Status = domain.AuthRequestStatusProcessing
		next.LatestSequence = ev.SequenceNumber
		next.UpdatedAt = ev.CreatedAt
		return &next, nil

	case domain.EventAuthResponseReceived:
		if state == nil {
			return nil, fmt.Errorf("AuthResponseReceived with no prior state")
		}
		var p domain.AuthResponseReceivedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshaling AuthResponseReceived payload: %w", err)
		}
		next := *state
		next.Status = p.Status
		next.LatestSequence = ev.SequenceNumber
		next.ProcessorName = strPtr(p.ProcessorName)
		next.UpdatedAt = ev.CreatedAt
		switch p.Status {
		case domain.AuthRequestStatusAuthorized:
			next.ProcessorAuthID = strPtr(p.ProcessorAuthID)
			next.AuthorizationCode = strPtr(p.AuthorizationCode)
			next.AuthorizedAmount = int64Ptr(p.AuthorizedAmount)
			next.AuthorizedCurrency = strPtr(p.AuthorizedCurrency)
		case domain.AuthRequestStatusVoided:
			// nothing further to record beyond the status transition itself.
		default:
			next.DenialCode = strPtr(p.DenialCode)
			next.DenialReason = strPtr(p.DenialReason)
		}
		return &next, nil

	case domain.EventAuthAttemptFailed:
		if state == nil {
			return nil, fmt.Errorf("AuthAttemptFailed with no prior state")
		}
		var p domain.AuthAttemptFailedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshaling AuthAttemptFailed payload: %w", err)
		}
		next := *state
		next.LatestSequence = ev.SequenceNumber
		next.RetryCount = p.RetryCount
		next.ErrorMessage = strPtr(p.ErrorMessage)
		next.UpdatedAt = ev.CreatedAt
		if !p.IsRetryable {
			next.Status = domain.AuthRequestStatusFailed
		}
		// A retryable failure leaves status at whatever it already was
		// (PROCESSING) — it must never regress back to PENDING, and the
		// queue's own redelivery is what drives the next attempt.
		return &next, nil

	case domain.EventAuthVoidRequested:
		if state == nil {
			return nil, fmt.Errorf("AuthVoidRequested with no prior state")
		}
		next := *state
		if !next.Status.IsTerminal() {
			next.Status = domain.AuthRequestStatusProcessing
		}
		next.VoidRequested = true
		next.LatestSequence = ev.SequenceNumber
		next.UpdatedAt = ev.CreatedAt
		return &next, nil

	case domain.EventAuthRequestExpired:
		if state == nil {
			return nil, fmt.Errorf("AuthRequestExpired with no prior state")
		}
		next := *state
		next.Status = domain.AuthRequestStatusExpired
		next.LatestSequence = ev.SequenceNumber
		next.UpdatedAt = ev.CreatedAt
		return &next, nil

	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

// now exists so tests can stub the clock; production code always calls
// time.Now via this indirection.
var now = time.Now
