package cli

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status of managed applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := app.apps.Status(cmd.Context())
		if err != nil {
			return err
		}
		app.printer.Status(rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
