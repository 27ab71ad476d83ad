package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/client"
	"github.com/spf13/cobra"
)

var (
	sendModel string
	sendChat  string
	sendWait  bool
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message to a running server",
	Long: `Send a message to the active chat on a running server, or to the chat
named by --chat. With no chat open, the server starts a new one.

With --wait the command polls until the reply arrives and prints it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := newClient()

		receipt, err := c.Send(ctx, strings.Join(args, " "), sendModel, sendChat)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if receipt.Created {
			_, _ = fmt.Fprintf(out, "%s Started a new chat %s\n", infoStyle.Render("ℹ"), receipt.SessionID)
		}
		_, _ = fmt.Fprintf(out, "%s Sent to %s\n", successStyle.Render("✓"), receipt.Path)

		if !sendWait {
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, cfg.ReplyTimeout+5*time.Second)
		defer cancel()

		var reply internal.Message
		var at, total int
		err = internal.ShowProgress(ctx, "Waiting for reply", func() error {
			session, waitErr := waitForReply(ctx, c, receipt.SessionID, receipt.Index, 200*time.Millisecond)
			if waitErr != nil {
				return waitErr
			}
			at, _ = replyTo(session.Messages, receipt.Index)
			reply, total = session.Messages[at], len(session.Messages)
			return nil
		})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out)
		displayMessage(out, at+1, reply, total)
		return nil
	},
}

// waitForReply polls the chat until the user message at index has its reply
func waitForReply(ctx context.Context, c *client.Client, id string, index int, every time.Duration) (*internal.Session, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		session, err := c.Session(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, ok := replyTo(session.Messages, index); ok {
			return session, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no reply from chat %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// replyTo finds the assistant message answering the user message at index.
// Replies answer user messages first in, first out.
func replyTo(msgs []internal.Message, index int) (int, bool) {
	if index < 0 || index >= len(msgs) || msgs[index].Role != internal.RoleUser {
		return 0, false
	}
	waiting := 0 // unanswered user messages up to and including ours
	for i, m := range msgs {
		switch {
		case m.Role == internal.RoleUser && i <= index:
			waiting++
		case m.Role == internal.RoleAssistant && waiting > 0:
			waiting--
			if i > index && waiting == 0 {
				return i, !m.Pending()
			}
		}
	}
	return 0, false
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendModel, "model", "m", "", "Model to reply (default: the server's default)")
	sendCmd.Flags().StringVar(&sendChat, "chat", "", "Chat id to send to (default: the active chat)")
	sendCmd.Flags().BoolVarP(&sendWait, "wait", "w", false, "Wait for the reply and print it")
}
