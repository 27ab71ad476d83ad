package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration and server reachability",
	Long: `Check the health of a chatdesk setup by verifying:
  • Configuration loads and validates
  • The model catalogue and default model
  • The export directory
  • The server answers at --server

Use --verbose for detailed diagnostic information.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		say := func(a ...interface{}) { _, _ = fmt.Fprintln(out, a...) }
		detail := func(format string, a ...interface{}) {
			if verbose {
				_, _ = fmt.Fprintf(out, "   "+format+"\n", a...)
			}
		}

		say(sectionStyle.Render("🔍 chatdesk Health Check"))
		say()

		// Step 1: Configuration
		say(infoStyle.Render("Step 1: Loading configuration..."))
		say(successStyle.Render("✅ Configuration valid"))
		if used := v.ConfigFileUsed(); used != "" {
			detail("File: %s", used)
		} else {
			detail("File: none, using defaults and CHATDESK_* environment")
		}
		detail("Listen address: %s", cfg.Addr)
		detail("Reply delay: %s, timeout: %s", cfg.ReplyDelay, cfg.ReplyTimeout)
		say()

		// Step 2: Models
		say(infoStyle.Render("Step 2: Checking model catalogue..."))
		say(successStyle.Render(fmt.Sprintf("✅ %d model(s), default %s", len(cfg.Models), cfg.DefaultModel)))
		for _, m := range cfg.Models {
			detail("%s (%s)", m.ID, m.Label)
		}
		say()

		// Step 3: Export directory
		say(infoStyle.Render("Step 3: Checking export directory..."))
		exportsReady := true
		if info, err := os.Stat(cfg.ExportDir); err == nil && info.IsDir() {
			say(successStyle.Render("✅ Export directory exists"))
		} else if os.IsNotExist(err) {
			say(warningStyle.Render("⚠️  Export directory not found"))
			detail("It is created on first export")
		} else {
			exportsReady = false
			say(errorStyle.Render("❌ Export directory unusable"))
			if err == nil {
				detail("%s is not a directory", cfg.ExportDir)
			} else {
				detail("%v", err)
			}
		}
		detail("Path: %s", cfg.ExportDir)
		say()

		// Step 4: Server
		say(infoStyle.Render("Step 4: Contacting server..."))
		health, err := newClient().Health(cmd.Context())
		if err != nil {
			say(errorStyle.Render("❌ Server unreachable"))
			detail("URL: %s", cfg.Server)
			detail("Error: %v", err)
		} else {
			say(successStyle.Render(fmt.Sprintf("✅ Server %s", health.Status)))
			detail("URL: %s", cfg.Server)
			detail("Chats: %d, pending replies: %d", health.Sessions, health.Pending)
		}
		say()

		// Summary
		say(sectionStyle.Render("📊 Summary"))
		say()

		switch {
		case err == nil && exportsReady:
			say(successStyle.Render("✅ Health check passed!"))
			say(successStyle.Render(fmt.Sprintf("   • Chats: %d", health.Sessions)))
			return nil
		case err == nil:
			say(warningStyle.Render("⚠️  Server is up but exports will fail"))
			return nil
		default:
			say(errorStyle.Render("❌ Health check failed"))
			say("   • Start a server with 'chatdesk serve' or point --server at one")
			return fmt.Errorf("health check failed: %w", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
