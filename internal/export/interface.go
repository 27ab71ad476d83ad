package export

import (
	"fmt"
	"io"

	"github.com/iksnae/chatdesk/internal"
)

// Formats lists the supported export formats
var Formats = []string{"md", "json", "yaml", "jsonl"}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
	ContentType() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, &internal.ValidationError{
			Field:  "format",
			Reason: fmt.Sprintf("unsupported format %q (supported: jsonl, md, yaml, json)", format),
		}
	}
}
