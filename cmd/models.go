package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var modelsRemote bool

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models replies can come from",
	Long: `List the configured model catalogue. The default model is marked with ●.

With --remote the catalogue is read from the running server instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		models, def := cfg.Models, cfg.DefaultModel
		if modelsRemote {
			remote, err := newClient().Models(cmd.Context())
			if err != nil {
				return err
			}
			models, def = remote.Models, remote.Default
		}
		displayModels(cmd.OutOrStdout(), models, def)
		return nil
	},
}

func displayModels(out io.Writer, models []internal.ModelInfo, def string) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, " \t"+titleStyle.Render("ID")+"\t"+titleStyle.Render("Label")+"\t")
	for _, m := range models {
		marker := " "
		if m.ID == def {
			marker = activeStyle.Render("●")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n", marker, m.ID, idStyle.Render(m.Label))
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsRemote, "remote", false, "Read the catalogue from the running server")
}
