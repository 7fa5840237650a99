package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/service/processor"

	"github.com/google/uuid"
)

// TestIntegration_MaxRetriesExhausted exercises scenario 5: a processor
// that always fails must exhaust MaxRetries redeliveries and then escalate
// to a terminal FAILED status with error_code "max_retries_exceeded",
// never retrying forever.
func TestIntegration_MaxRetriesExhausted(t *testing.T) {
	alwaysFail := newAlwaysFailProcessor("mock")
	const maxRetries = 3
	app := newTestApp(t, appOptions{
		Processors:  processor.NewRegistry(alwaysFail),
		WorkerCount: 1,
		MaxRetries:  maxRetries,
	})

	tokenID := app.fixtureToken(t, "4242424242424242")
	body := dto.AuthorizeRequest{
		PaymentToken:   tokenID,
		AmountMinor:    500,
		Currency:       "USD",
		IdempotencyKey: uuid.NewString(),
	}

	status, resp := app.post(t, "/api/v1/authorize", body)
	if status != http.StatusCreated {
		t.Fatalf("authorize: status=%d body=%+v", status, resp)
	}
	created := decodeData[dto.AuthorizeResponse](t, resp)

	deadline := time.Now().Add(8 * time.Second)
	var final dto.AuthRequestStatusResponse
	for time.Now().Before(deadline) {
		status, resp := app.get(t, "/api/v1/authorize/"+created.AuthRequestID)
		if status != http.StatusOK {
			t.Fatalf("get status: status=%d body=%+v", status, resp)
		}
		final = decodeData[dto.AuthRequestStatusResponse](t, resp)
		if final.Status == "FAILED" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if final.Status != "FAILED" {
		t.Fatalf("expected FAILED after exhausting retries, got %q", final.Status)
	}
	if final.ErrorMessage == nil {
		t.Fatalf("expected an error message on the exhausted request")
	}
	if alwaysFail.callCount() != maxRetries {
		t.Fatalf("expected exactly %d processor attempts before escalation, got %d", maxRetries, alwaysFail.callCount())
	}

	events, err := app.events.ListByAggregate(context.Background(), uuid.MustParse(created.AuthRequestID))
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	var lastFailed *domain.AuthAttemptFailedPayload
	failedCount := 0
	for _, ev := range events {
		if ev.Kind != domain.EventAuthAttemptFailed {
			continue
		}
		failedCount++
		var p domain.AuthAttemptFailedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			t.Fatalf("unmarshaling AuthAttemptFailed payload: %v", err)
		}
		lastFailed = &p
	}
	if failedCount != maxRetries {
		t.Fatalf("expected %d AuthAttemptFailed events (one per exhausted attempt), got %d", maxRetries, failedCount)
	}
	if lastFailed == nil || lastFailed.ErrorCode != "max_retries_exceeded" {
		t.Fatalf("expected the final AuthAttemptFailed event's error_code to be max_retries_exceeded, got %+v", lastFailed)
	}
	if lastFailed.IsRetryable {
		t.Fatalf("expected the final AuthAttemptFailed event to be non-retryable")
	}
}
