package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/chatdesk/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.Session, w io.Writer) error {
	bw := &errWriter{w: w}

	bw.printf("# Chat: %s\n\n", session.Name)
	bw.printf("**ID:** %s  \n", session.ID)
	if session.CreatedAt != "" {
		bw.printf("**Created:** %s  \n", session.CreatedAt)
	}
	bw.printf("**Messages:** %d\n\n", len(session.Messages))
	bw.printf("---\n\n")

	for i, msg := range session.Messages {
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}

		bw.printf("**%s:**%s\n\n%s\n\n", speaker(msg), timestamp, body(msg))

		if i < len(session.Messages)-1 {
			bw.printf("---\n\n")
		}
	}

	return bw.err
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

// ContentType returns the MIME type for this format
func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func speaker(msg internal.Message) string {
	if msg.Role == internal.RoleUser {
		return "You"
	}
	if msg.Model != "" {
		return fmt.Sprintf("Assistant (%s)", msg.Model)
	}
	return "Assistant"
}

// body renders message content. Assistant replies are markdown already;
// user text is escaped so it reads back as typed.
func body(msg internal.Message) string {
	switch {
	case msg.Error:
		return "> " + strings.ReplaceAll(msg.Content, "\n", "\n> ")
	case msg.Role == internal.RoleUser:
		return escapeMarkdown(msg.Content)
	case msg.Pending():
		return "_waiting for reply_"
	default:
		return msg.Content
	}
}

// escapeMarkdown escapes markdown emphasis outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
