package commands

import (
	"github.com/spf13/cobra"

	"github.com/charice-projects/omnivoice/pkg/cli"
	"github.com/charice-projects/omnivoice/pkg/command"
)

var (
	historyCount  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent command executions",
	Long: `History prints the audit ring, newest first. Failed and cancelled
executions are recorded alongside successes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		h := command.NewHistory(store, command.DefaultHistorySize)
		if err := h.Load(cmd.Context()); err != nil {
			return err
		}
		return cli.Output(h.Recent(historyCount), cli.OutputOptions{
			Format: cli.OutputFormat(historyFormat),
		})
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "number of entries")
	historyCmd.Flags().StringVarP(&historyFormat, "output", "o", "yaml", "output format (yaml, json)")
	rootCmd.AddCommand(historyCmd)
}
