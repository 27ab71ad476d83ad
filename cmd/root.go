package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose    bool
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	v   = internal.NewViper()
	cfg *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatdesk",
	Short: "Chat sessions with a deep-linkable active conversation",
	Long: `A chat session manager with an HTTP API and a terminal client.

chatdesk keeps an ordered list of chat sessions, tracks the active one
behind a /chat/{id} deep link, and sends your messages to a model that
answers asynchronously.

Features:
  • Create, rename, delete, search and reorder chat sessions
  • Send a message with no open chat and one is created for you
  • Replies arrive in send order, even when the model is slow
  • Export sessions as Markdown, JSON, YAML or JSONL

Quick Start:
  chatdesk serve                         # Run the HTTP server
  chatdesk chat                          # Chat in the terminal
  chatdesk send "hello"                  # Send to a running server
  chatdesk list                          # List sessions on a running server`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer internal.SyncLogger()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	internal.SetVerbose(verbose)

	loaded, err := internal.LoadConfig(v, configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	internal.LogDebug("Config: addr=%s server=%s default_model=%s", cfg.Addr, cfg.Server, cfg.DefaultModel)
	return nil
}

// bindFlag ties a command flag to a config key, so flag > env > file > default
func bindFlag(vp *viper.Viper, key string, cmd *cobra.Command, flag string) {
	if err := vp.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./chatdesk.yaml or ~/.chatdesk/chatdesk.yaml)")
	rootCmd.PersistentFlags().String("server", "", "Server URL for client commands")
	if err := v.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")); err != nil {
		panic(err)
	}

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func newClient() *client.Client {
	return client.New(cfg.Server)
}
