package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewJSONRequest builds a request with body encoded as JSON. A nil body sends no payload.
func NewJSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(JSONMarshal(t, body))
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// DecodeJSON reads all of r and unmarshals it into v
func DecodeJSON(t *testing.T, r io.Reader, v interface{}) {
	t.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	JSONUnmarshal(t, data, v)
}
