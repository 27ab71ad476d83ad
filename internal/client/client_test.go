package client

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Client, *internal.Store, *internal.Dispatcher) {
	t.Helper()
	store := internal.NewTestStore()
	d := internal.NewDispatcher(store, &internal.EchoModel{}, internal.DispatcherConfig{
		Models: internal.ModelIDs(internal.DefaultModels),
	})
	srv := server.New(store, d, server.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		d.Close()
		srv.Router().Close()
	})
	return New(ts.URL + "/"), store, d
}

func TestClient_SendAndRead(t *testing.T) {
	c, _, d := newTestServer(t)
	ctx := context.Background()

	receipt, err := c.Send(ctx, "hello", "", "")
	require.NoError(t, err)
	assert.True(t, receipt.Created)
	d.Wait()

	sessions, err := c.Sessions(ctx, "")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].MessageCount)

	session, err := c.Session(ctx, receipt.SessionID)
	require.NoError(t, err)
	assert.Equal(t, internal.EchoReply("hello"), session.Messages[1].Content)

	state, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, receipt.SessionID, state.ActiveID)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Sessions)
}

func TestClient_Errors(t *testing.T) {
	c, _, _ := newTestServer(t)
	ctx := context.Background()

	_, err := c.Send(ctx, "", "", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, 422, apiErr.Status)
	assert.Equal(t, "text", apiErr.Field)

	_, err = c.Session(ctx, "missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Status)
}

func TestClient_ExportAndModels(t *testing.T) {
	c, store, _ := newTestServer(t)
	ctx := context.Background()
	id := store.Create("Notes")

	var buf bytes.Buffer
	require.NoError(t, c.Export(ctx, id, "md", &buf))
	assert.Contains(t, buf.String(), "# Chat: Notes")

	models, err := c.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chatgpt", models.Default)
}

func TestClient_Unreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Health(context.Background())
	assert.Error(t, err)
}
