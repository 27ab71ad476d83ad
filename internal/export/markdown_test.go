package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/chatdesk/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		session *internal.Session
		want    []string
		notWant []string
	}{
		{
			name:    "basic session",
			session: internal.CreateTestSession("test1"),
			want: []string{
				"# Chat: Test Conversation",
				"**ID:** test1",
				"**Messages:** 2",
				"**You:**",
				"Hello, how are you?",
				"**Assistant (chatgpt):**",
			},
		},
		{
			name: "session with timestamp",
			session: internal.CreateTestSessionWithMessages("test2", []internal.Message{
				{
					Role:      internal.RoleUser,
					Content:   "Hello",
					Timestamp: "2023-01-01T00:00:00Z",
				},
			}),
			want: []string{
				"**You:** (2023-01-01T00:00:00Z)",
			},
		},
		{
			name: "user text escaped, reply kept",
			session: internal.CreateTestSessionWithMessages("test3", []internal.Message{
				{Role: internal.RoleUser, Content: "make it **bold**"},
				{Role: internal.RoleAssistant, Content: internal.EchoReply("make it **bold**")},
			}),
			want: []string{
				"make it \\*\\*bold\\*\\*",
				"**You said:**",
			},
		},
		{
			name: "error reply quoted",
			session: internal.CreateTestSessionWithMessages("test4", []internal.Message{
				{Role: internal.RoleAssistant, Content: "Error: timeout", Error: true},
			}),
			want: []string{"> Error: timeout"},
		},
		{
			name:    "empty session",
			session: internal.CreateTestSessionWithMessages("test5", []internal.Message{}),
			want: []string{
				"# Chat: Test Conversation",
				"**Messages:** 0",
			},
			notWant: []string{"---\n\n---"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &MarkdownExporter{}

			if err := exporter.Export(tt.session, &buf); err != nil {
				t.Fatalf("MarkdownExporter.Export() error = %v", err)
			}

			output := buf.String()
			for _, wantStr := range tt.want {
				if !strings.Contains(output, wantStr) {
					t.Errorf("Output should contain %q, got:\n%s", wantStr, output)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(output, s) {
					t.Errorf("Output should not contain %q, got:\n%s", s, output)
				}
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestMarkdownExporter_WriteError(t *testing.T) {
	exporter := &MarkdownExporter{}
	if err := exporter.Export(internal.CreateTestSession("x"), failingWriter{}); err == nil {
		t.Error("Export() should report write errors")
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	exporter := &MarkdownExporter{}
	if got := exporter.Extension(); got != "md" {
		t.Errorf("MarkdownExporter.Extension() = %v, want md", got)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		notWant []string
	}{
		{
			name:  "basic text",
			input: "Hello world",
			want:  []string{"Hello world"},
		},
		{
			name:    "markdown bold",
			input:   "This is **bold** text",
			want:    []string{"\\*\\*bold\\*\\*"},
			notWant: []string{" **bold**"},
		},
		{
			name:    "markdown underline",
			input:   "This is __underlined__ text",
			want:    []string{"\\_\\_underlined\\_\\_"},
			notWant: []string{" __underlined__"},
		},
		{
			name:  "code block preserved",
			input: "```go\nx := a**b\n```",
			want:  []string{"```go", "x := a**b", "```"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeMarkdown(tt.input)
			for _, wantStr := range tt.want {
				if !strings.Contains(got, wantStr) {
					t.Errorf("escapeMarkdown() should contain %q, got: %s", wantStr, got)
				}
			}
			for _, notWantStr := range tt.notWant {
				if strings.Contains(got, notWantStr) {
					t.Errorf("escapeMarkdown() should not contain %q, got: %s", notWantStr, got)
				}
			}
		})
	}
}
