package cli

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available vulnerable applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := app.fetcher.Fetch(cmd.Context(), manifestURL)
		if err != nil {
			return err
		}
		state, err := app.store.Load()
		if err != nil {
			return err
		}
		app.printer.ListApps(m.Apps, state.Apps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
