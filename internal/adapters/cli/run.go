package cli

import (
	"github.com/spf13/cobra"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run <app>",
	Short: "Run a vulnerable application behind the reverse proxy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := app.fetcher.Fetch(cmd.Context(), manifestURL)
		if err != nil {
			return err
		}
		target := m.FindApp(args[0])
		if target == nil {
			return &domain.AppNotFoundError{Name: args[0]}
		}
		res, err := app.apps.Run(cmd.Context(), target, app.domain, app.https)
		if err != nil {
			return err
		}
		app.printer.AppRunning(target, res, app.https)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
