package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/chatdesk/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	ChatID    string        `json:"chat_id"`
	Index     int           `json:"index"`
	Role      internal.Role `json:"role"`
	Content   string        `json:"content"`
	Model     string        `json:"model,omitempty"`
	Error     bool          `json:"error,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, msg := range session.Messages {
		line := jsonlLine{
			ChatID:    session.ID,
			Index:     i,
			Role:      msg.Role,
			Content:   msg.Content,
			Model:     msg.Model,
			Error:     msg.Error,
			Timestamp: msg.Timestamp,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

// ContentType returns the MIME type for this format
func (e *JSONLExporter) ContentType() string {
	return "application/x-ndjson"
}
