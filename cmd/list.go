package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var listSearch string

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List chat sessions",
	Long: `List the chat sessions of a running server in sidebar order.

The active chat is marked with ●. Use --search to filter by name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := newClient().Sessions(cmd.Context(), listSearch)
		if err != nil {
			return err
		}
		displaySessions(cmd.OutOrStdout(), sessions)
		return nil
	},
}

func displaySessions(out io.Writer, sessions []internal.SessionSummary) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No chats found"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d chat(s)", len(sessions))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, " \t"+titleStyle.Render("#")+"\t"+titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 80))

	now := time.Now()
	for i, entry := range sessions {
		marker := " "
		if entry.Active {
			marker = activeStyle.Render("●")
		}

		name := entry.Name
		if name == "" {
			name = "Untitled"
		}
		if r := []rune(name); len(r) > 50 {
			name = string(r[:47]) + "..."
		}
		name = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(name)

		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t\n",
			marker,
			i+1,
			idStyle.Render(entry.ID),
			name,
			countStyle.Render(strconv.Itoa(entry.MessageCount)),
			dateStyle.Render(formatCreated(entry.CreatedAt, now)),
		)
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("💡 Tip: open a chat with `chatdesk show ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(sessions[0].ID)+
		idStyle.Render("` or the deep link "+internal.PathFor(sessions[0].ID)))
}

// formatCreated renders an RFC3339 timestamp relative to now
func formatCreated(created string, now time.Time) string {
	if created == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		if len(created) >= 10 {
			return created[:10]
		}
		return created
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only list chats whose name contains this text")
}
