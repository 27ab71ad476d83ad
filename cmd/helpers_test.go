package cmd

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/server"
)

func testConfig(t *testing.T) *internal.Config {
	t.Helper()
	return &internal.Config{
		Addr:             "127.0.0.1:0",
		ReplyTimeout:     time.Second,
		MaxMessageLength: internal.DefaultMaxMessageLength,
		MaxNameLength:    internal.DefaultMaxNameLength,
		DefaultModel:     "chatgpt",
		Models:           internal.DefaultModels,
		ExportDir:        t.TempDir(),
	}
}

// startTestServer serves a fresh store over HTTP and returns it with the base URL
func startTestServer(t *testing.T) (*internal.Store, *internal.Dispatcher, string) {
	t.Helper()
	c := testConfig(t)
	store, dispatcher := newEngine(c)
	srv := server.New(store, dispatcher, server.Options{
		Models:       c.Models,
		DefaultModel: c.DefaultModel,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		dispatcher.Close()
		srv.Router().Close()
	})
	return store, dispatcher, ts.URL
}

// execute runs the root command with args and returns what it printed
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores command flag variables, which cobra keeps between executions
func resetFlags() {
	verbose, configPath = false, ""
	listSearch = ""
	limit, since = 0, ""
	sendModel, sendChat, sendWait = "", "", false
	format, outputDir, sessionID, toStdout, clearExport = "jsonl", "", "", false, false
	modelsRemote = false
	chatModel = ""

	for _, c := range append(rootCmd.Commands(), rootCmd) {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				_ = f.Value.Set("false")
				f.Changed = false
			}
		}
	}
}
