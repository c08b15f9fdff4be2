package cli

import (
	"github.com/spf13/cobra"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

var installCmd = &cobra.Command{
	Use:   "install <app>",
	Short: "Install a vulnerable application (pull or build its image)",
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
		if err := app.apps.Install(cmd.Context(), target); err != nil {
			return err
		}
		app.printer.AppInstalled(target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
