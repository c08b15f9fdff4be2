package cli

import (
	"github.com/spf13/cobra"
)

var purgeFlag bool

var removeCmd = &cobra.Command{
	Use:   "remove <app>",
	Short: "Stop and remove a vulnerable application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.apps.Remove(cmd.Context(), args[0], purgeFlag); err != nil {
			return err
		}
		app.printer.AppRemoved(args[0])
		return nil
	},
}

func init() {
	removeCmd.Flags().BoolVar(&purgeFlag, "purge", false, "also remove the Docker image")
	rootCmd.AddCommand(removeCmd)
}
