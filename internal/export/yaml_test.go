package export

import (
	"bytes"
	"testing"

	"github.com/iksnae/chatdesk/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		session *internal.Session
	}{
		{
			name:    "basic session",
			session: internal.CreateTestSession("test1"),
		},
		{
			name:    "empty session",
			session: internal.CreateTestSessionWithMessages("test2", []internal.Message{}),
		},
		{
			name: "multiline content",
			session: internal.CreateTestSessionWithMessages("test3", []internal.Message{
				{Role: internal.RoleUser, Content: "line one\nline two"},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &YAMLExporter{}

			if err := exporter.Export(tt.session, &buf); err != nil {
				t.Fatalf("YAMLExporter.Export() error = %v", err)
			}

			var session internal.Session
			if err := yaml.Unmarshal(buf.Bytes(), &session); err != nil {
				t.Fatalf("Output is not valid YAML: %v\nOutput: %s", err, buf.String())
			}
			if session.ID != tt.session.ID || session.Name != tt.session.Name {
				t.Errorf("decoded session = %+v", session)
			}
			if len(session.Messages) != len(tt.session.Messages) {
				t.Fatalf("decoded %d messages, want %d", len(session.Messages), len(tt.session.Messages))
			}
			for i := range session.Messages {
				if session.Messages[i].Content != tt.session.Messages[i].Content {
					t.Errorf("message %d content = %q", i, session.Messages[i].Content)
				}
			}
		})
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	exporter := &YAMLExporter{}
	if got := exporter.Extension(); got != "yaml" {
		t.Errorf("YAMLExporter.Extension() = %v, want yaml", got)
	}
}
