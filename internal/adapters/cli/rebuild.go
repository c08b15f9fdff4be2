package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <app>",
	Short: "Rebuild a custom application (dockerfile or git type)",
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
		if err := app.apps.Rebuild(cmd.Context(), target); err != nil {
			return err
		}
		app.printer.Success(fmt.Sprintf("Rebuilt %s", target.Name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
