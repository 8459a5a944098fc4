// Package testutil provides shared test helpers for HTTP handlers and
// params-backed components.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/accel.report/internal/monitoring"
	"github.com/banshee-data/accel.report/internal/params"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request without a body.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewJSONRequest creates a test HTTP request whose body is v encoded as
// JSON. A string or []byte body is sent verbatim.
func NewJSONRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	var body io.Reader
	switch b := v.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	case []byte:
		body = bytes.NewBuffer(b)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		body = bytes.NewBuffer(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes the recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// NewParamsStore returns a MemoryStore preloaded with kv.
func NewParamsStore(t *testing.T, kv map[string]string) *params.MemoryStore {
	t.Helper()
	s := params.NewMemoryStore()
	for k, v := range kv {
		if err := s.Put(k, v); err != nil {
			t.Fatalf("failed to seed params %q: %v", k, err)
		}
	}
	return s
}

// QuietLogs mutes monitoring.Logf for the duration of the test.
func QuietLogs(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })
}
