package integration

import (
	"net/http"
	"testing"
	"time"

	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/service/processor"

	"github.com/google/uuid"
)

// TestIntegration_TransientRetryThenSuccess exercises scenario 2: a
// processor that fails once with a transient error must not fail the
// request -- the worker appends a retryable AuthAttemptFailed and nacks the
// message, the queue's visibility timeout lets another poll reclaim it
// (to this worker, since there is only one here), and the next attempt
// succeeds.
func TestIntegration_TransientRetryThenSuccess(t *testing.T) {
	flaky := newFlakyProcessor("mock", 1)
	app := newTestApp(t, appOptions{
		Processors:  processor.NewRegistry(flaky),
		WorkerCount: 1,
	})

	tokenID := app.fixtureToken(t, "4242424242424242")
	body := dto.AuthorizeRequest{
		PaymentToken:   tokenID,
		AmountMinor:    2500,
		Currency:       "USD",
		IdempotencyKey: uuid.NewString(),
	}

	status, resp := app.post(t, "/api/v1/authorize", body)
	if status != http.StatusCreated {
		t.Fatalf("authorize: status=%d body=%+v", status, resp)
	}
	created := decodeData[dto.AuthorizeResponse](t, resp)

	deadline := time.Now().Add(5 * time.Second)
	var final dto.AuthRequestStatusResponse
	for time.Now().Before(deadline) {
		status, resp := app.get(t, "/api/v1/authorize/"+created.AuthRequestID)
		if status != http.StatusOK {
			t.Fatalf("get status: status=%d body=%+v", status, resp)
		}
		final = decodeData[dto.AuthRequestStatusResponse](t, resp)
		if final.Status == "AUTHORIZED" || final.Status == "DENIED" || final.Status == "FAILED" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if final.Status != "AUTHORIZED" {
		t.Fatalf("expected AUTHORIZED after transient retry, got %q (retry_count=%d)", final.Status, final.RetryCount)
	}
	if flaky.callCount() < 2 {
		t.Fatalf("expected at least 2 processor calls (one failure, one success), got %d", flaky.callCount())
	}
}
