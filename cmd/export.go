package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/client"
	"github.com/iksnae/chatdesk/internal/export"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	format      string
	outputDir   string
	sessionID   string
	toStdout    bool
	clearExport bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export chats to file",
	Long: `Export chats from a running server to files (` + strings.Join(export.Formats, ", ") + `).

By default every chat is exported into the export directory, which keeps an
exports.yaml index of what was written. Use --id for a single chat, or
--stdout to stream one chat to standard output.
Use 'chatdesk list' to see available chat ids.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		c := newClient()
		out := cmd.OutOrStdout()

		if toStdout {
			if sessionID == "" {
				return &internal.ValidationError{Field: "id", Reason: "--stdout needs --id"}
			}
			return c.Export(ctx, sessionID, format, out)
		}

		dir := outputDir
		if dir == "" {
			dir = cfg.ExportDir
		}
		em := internal.NewExportManager(dir)
		if clearExport {
			if err := em.Clear(); err != nil {
				internal.LogWarn("Failed to clear export directory: %v", err)
			} else {
				internal.LogInfo("Export directory cleared")
			}
		}

		var sessions []*internal.Session
		err = internal.ShowProgress(ctx, "Fetching chats", func() error {
			var fetchErr error
			sessions, fetchErr = fetchSessions(ctx, c, sessionID)
			return fetchErr
		})
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No chats to export"))
			return nil
		}

		var paths []string
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d chat(s) to %s", len(sessions), dir), func() error {
			var exportErr error
			paths, exportErr = em.ExportAll(sessions, exporter)
			return exportErr
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(out, "%s Export complete: %d chat(s) exported to %s\n", successStyle.Render("✓"), len(paths), dir)
		if verbose {
			for _, p := range paths {
				_, _ = fmt.Fprintf(out, "   %s\n", p)
			}
		}
		return nil
	},
}

// fetchSessions loads one chat by id, or every chat when id is empty
func fetchSessions(ctx context.Context, c *client.Client, id string) ([]*internal.Session, error) {
	if id != "" {
		session, err := c.Session(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*internal.Session{session}, nil
	}

	summaries, err := c.Sessions(ctx, "")
	if err != nil {
		return nil, err
	}

	sessions := make([]*internal.Session, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, summary := range summaries {
		g.Go(func() error {
			session, err := c.Session(gctx, summary.ID)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
					internal.LogDebug("Chat %s deleted while exporting", summary.ID)
					return nil
				}
				return err
			}
			sessions[i] = session
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := sessions[:0]
	for _, s := range sessions {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format ("+strings.Join(export.Formats, ", ")+")")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (default from config, ~/.chatdesk/exports)")
	exportCmd.Flags().StringVar(&sessionID, "id", "", "Export a single chat by id")
	exportCmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the chat named by --id to standard output")
	exportCmd.Flags().BoolVar(&clearExport, "clear", false, "Remove previous exports before writing")
}
