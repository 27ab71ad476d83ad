package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var (
	limit int
	since string
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	failedMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Show messages for a specific chat",
	Long: `Display the transcript of a chat on a running server.

The id may be given bare or as a /chat/{id} deep link.
Use 'chatdesk list' to see available chat ids.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if strings.HasPrefix(id, "/") {
			parsed, err := internal.ParsePath(id)
			if err != nil {
				return err
			}
			if parsed == "" {
				return fmt.Errorf("%s does not name a chat", id)
			}
			id = parsed
		}

		var sinceTime time.Time
		if since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = parsed
		}

		session, err := newClient().Session(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, session)

		messages := filterMessages(session.Messages, sinceTime)
		total := len(messages)
		if limit > 0 && limit < total {
			messages = messages[:limit]
		}
		for i, msg := range messages {
			displayMessage(out, i+1, msg, total)
		}

		if limit > 0 && limit < total {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d more message(s))", total-limit)))
		}
		return nil
	},
}

// filterMessages keeps messages stamped at or after since. A zero since keeps everything.
func filterMessages(messages []internal.Message, since time.Time) []internal.Message {
	if since.IsZero() {
		return messages
	}
	filtered := make([]internal.Message, 0, len(messages))
	for _, msg := range messages {
		t, err := time.Parse(time.RFC3339, msg.Timestamp)
		if err != nil {
			continue
		}
		if !t.Before(since) {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

func displaySessionHeader(w io.Writer, session *internal.Session) {
	if session == nil {
		return
	}
	name := session.Name
	if name == "" {
		name = "Untitled"
	}
	_, _ = fmt.Fprintln(w, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", name)))

	metaParts := []string{internal.PathFor(session.ID)}
	if session.CreatedAt != "" {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", session.CreatedAt))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(session.Messages)))
	_, _ = fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(w)
}

func displayMessage(w io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch {
	case msg.Role == internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 You"
	case msg.Error:
		actorStyle = failedMessageStyle
		actorLabel = "⚠️  " + modelLabel(msg.Model)
	case msg.Role == internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 " + modelLabel(msg.Model)
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			header += " " + timestampStyle.Render(t.Local().Format("15:04:05"))
		} else {
			header += " " + timestampStyle.Render(msg.Timestamp)
		}
	}
	_, _ = fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Content)
	switch {
	case msg.Pending():
		_, _ = fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(waiting for reply)"))
	case content == "":
		_, _ = fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	default:
		_, _ = fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	}
}

func modelLabel(model string) string {
	if model == "" {
		return "Assistant"
	}
	return "Assistant (" + model + ")"
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if lipgloss.Width(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			switch {
			case currentLine == "":
				currentLine = word
			case lipgloss.Width(currentLine)+lipgloss.Width(word)+1 > width:
				wrapped = append(wrapped, currentLine)
				currentLine = word
			default:
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}
