package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the chatdesk HTTP API.

Sessions live in memory for the lifetime of the process. The server stops
gracefully on SIGINT or SIGTERM: in-flight requests finish and pending
replies are canceled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg)
	},
}

func newEngine(c *internal.Config) (*internal.Store, *internal.Dispatcher) {
	store := internal.NewStore(internal.WithMaxNameLength(c.MaxNameLength))
	model := &internal.EchoModel{Delay: c.ReplyDelay}
	return store, internal.NewDispatcher(store, model, c.DispatcherConfig())
}

func runServer(ctx context.Context, c *internal.Config) error {
	store, dispatcher := newEngine(c)
	srv := server.New(store, dispatcher, server.Options{
		Addr:         c.Addr,
		Models:       c.Models,
		DefaultModel: c.DefaultModel,
		RateLimit:    c.RateLimit,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if n := dispatcher.Pending(); n > 0 {
			internal.LogInfo("Canceling %d pending repl(ies)", n)
		}
		dispatcher.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	internal.LogInfo("Server stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default 127.0.0.1:8080)")
	serveCmd.Flags().Duration("reply-delay", 0, "Delay before the stand-in model replies")
	bindFlag(v, "addr", serveCmd, "addr")
	bindFlag(v, "reply_delay", serveCmd, "reply-delay")
}
