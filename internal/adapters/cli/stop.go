package cli

import (
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <app>",
	Short: "Stop a running vulnerable application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.apps.Stop(cmd.Context(), args[0]); err != nil {
			return err
		}
		app.printer.AppStopped(args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
