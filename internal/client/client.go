// Package client talks to a running chatdesk server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iksnae/chatdesk/internal"
)

// Client is a thin JSON client for the chatdesk HTTP API
type Client struct {
	base string
	http *http.Client
}

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// Health is the server's liveness report
type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Pending  int    `json:"pending"`
}

// Models is the server's model catalogue
type Models struct {
	Default string               `json:"default"`
	Models  []internal.ModelInfo `json:"models"`
}

// New creates a client for the server at base, e.g. http://127.0.0.1:8080
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health calls /healthz
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// State returns the current view
func (c *Client) State(ctx context.Context) (*internal.View, error) {
	var v internal.View
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Models returns the model catalogue
func (c *Client) Models(ctx context.Context) (*Models, error) {
	var m Models
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Sessions lists session summaries, filtered by query when it is not empty
func (c *Client) Sessions(ctx context.Context, query string) ([]internal.SessionSummary, error) {
	path := "/api/chats"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out []internal.SessionSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Session fetches one session with its messages
func (c *Client) Session(ctx context.Context, id string) (*internal.Session, error) {
	var s internal.Session
	if err := c.do(ctx, http.MethodGet, "/api/chats/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Send posts a message; an empty chatID targets the active session
func (c *Client) Send(ctx context.Context, text, model, chatID string) (*internal.Receipt, error) {
	body := map[string]string{"text": text, "model": model, "chat_id": chatID}
	var r internal.Receipt
	if err := c.do(ctx, http.MethodPost, "/api/messages", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Export downloads a session rendered in format and writes it to w
func (c *Client) Export(ctx context.Context, id, format string, w io.Writer) error {
	path := fmt.Sprintf("/api/chats/%s/export?format=%s", url.PathEscape(id), url.QueryEscape(format))
	resp, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// request sends the call and turns non-2xx responses into *APIError
func (c *Client) request(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	internal.LogDebug("%s %s", method, req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server at %s: %w", c.base, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	apiErr := &APIError{Status: resp.StatusCode, Code: "unknown", Message: http.StatusText(resp.StatusCode)}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Field   string `json:"field"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Field = envelope.Error.Field
	}
	return nil, apiErr
}
