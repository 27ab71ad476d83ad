package internal

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session represents a chat session with its full transcript
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt string    `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Messages  []Message `json:"messages" yaml:"messages"`
}

// Message represents a single transcript entry.
// Timestamp is informational; transcript order is slice order.
type Message struct {
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	Error     bool   `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Pending reports whether this is an assistant message whose content has not arrived yet
func (m Message) Pending() bool {
	return m.Role == RoleAssistant && m.Content == ""
}

// SessionSummary is the sidebar entry for a session
type SessionSummary struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
	Active       bool   `json:"active,omitempty" yaml:"active,omitempty"`
}

// View is the derived state read by presentation layers
type View struct {
	Sessions []SessionSummary `json:"sessions"`
	ActiveID string           `json:"active_id,omitempty"`
	Path     string           `json:"path"`
	Messages []Message        `json:"messages"`
}
