package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// apiResponse is the generic success/error envelope every endpoint replies
// with; scenarios decode Data into whatever dto shape they expect.
type apiResponse struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
}

func (a *testApp) post(t *testing.T, path string, body any) (int, apiResponse) {
	t.Helper()
	return a.do(t, http.MethodPost, path, body)
}

func (a *testApp) get(t *testing.T, path string) (int, apiResponse) {
	t.Helper()
	return a.do(t, http.MethodGet, path, nil)
}

func (a *testApp) do(t *testing.T, method, path string, body any) (int, apiResponse) {
	t.Helper()

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, a.url(path), bytes.NewReader(bodyBytes))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.signedHeaders(method, path, string(bodyBytes)) {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("performing request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}

	var parsed apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("parsing response body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, parsed
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("decoding response data %s: %v", resp.Data, err)
	}
	return out
}
