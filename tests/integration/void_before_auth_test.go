package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/service/processor"

	"github.com/google/uuid"
)

// TestIntegration_VoidBeforeAuthRace exercises scenario 6: a void requested
// while the authorization request is still PENDING (the worker hasn't even
// picked up the queued message yet) must be accepted, and the worker must
// observe it and expire the request with reason "void_before_auth" rather
// than proceeding to dispatch it to the processor at all.
func TestIntegration_VoidBeforeAuthRace(t *testing.T) {
	mock := processor.NewMockProcessor(0)
	app := newTestApp(t, appOptions{
		Processors:  processor.NewRegistry(mock),
		WorkerCount: 0, // no worker consumes until we say so, below
	})

	tokenID := app.fixtureToken(t, "4242424242424242")
	authBody := dto.AuthorizeRequest{
		PaymentToken:   tokenID,
		AmountMinor:    777,
		Currency:       "USD",
		IdempotencyKey: uuid.NewString(),
	}

	status, resp := app.post(t, "/api/v1/authorize", authBody)
	if status != http.StatusCreated {
		t.Fatalf("authorize: status=%d body=%+v", status, resp)
	}
	created := decodeData[dto.AuthorizeResponse](t, resp)
	if created.Status != "PENDING" {
		t.Fatalf("expected PENDING with no worker running, got %q", created.Status)
	}

	voidBody := dto.VoidRequest{
		Reason:         "customer cancelled before authorization completed",
		IdempotencyKey: uuid.NewString(),
	}
	voidStatus, voidResp := app.post(t, "/api/v1/authorize/"+created.AuthRequestID+"/void", voidBody)
	if voidStatus != http.StatusOK {
		t.Fatalf("void: status=%d body=%+v", voidStatus, voidResp)
	}

	// Only now does a worker get to look at the queued message: it must
	// find VoidRequested set and expire the request without ever calling
	// the processor.
	app.startWorkers(processor.NewRegistry(mock), 1)

	deadline := time.Now().Add(5 * time.Second)
	var final dto.AuthRequestStatusResponse
	for time.Now().Before(deadline) {
		status, resp := app.get(t, "/api/v1/authorize/"+created.AuthRequestID)
		if status != http.StatusOK {
			t.Fatalf("get status: status=%d body=%+v", status, resp)
		}
		final = decodeData[dto.AuthRequestStatusResponse](t, resp)
		if final.Status == "EXPIRED" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if final.Status != "EXPIRED" {
		t.Fatalf("expected EXPIRED after void-before-auth, got %q", final.Status)
	}

	// The real assertion: the worker must never have dispatched to the
	// processor at all once it saw VoidRequested, confirmed by the absence
	// of any attempt/response events for this aggregate.
	events, err := app.events.ListByAggregate(context.Background(), uuid.MustParse(created.AuthRequestID))
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	for _, ev := range events {
		if ev.Kind == domain.EventAuthResponseReceived {
			t.Fatalf("processor was dispatched despite void-before-auth: found AuthResponseReceived event")
		}
		if ev.Kind == domain.EventAuthAttemptStarted {
			t.Fatalf("worker started a processor attempt despite void-before-auth: found AuthAttemptStarted event")
		}
	}
}
