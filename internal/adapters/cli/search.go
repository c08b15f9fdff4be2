package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search applications by name, description or tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := app.fetcher.Fetch(cmd.Context(), manifestURL)
		if err != nil {
			return err
		}
		state, err := app.store.Load()
		if err != nil {
			return err
		}

		query := strings.ToLower(args[0])
		var matches []domain.App
		for _, a := range m.Apps {
			if matchesQuery(&a, query) {
				matches = append(matches, a)
			}
		}

		app.printer.SearchResults(args[0], matches, state.Apps)
		return nil
	},
}

func matchesQuery(a *domain.App, query string) bool {
	if strings.Contains(strings.ToLower(a.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(a.Description), query) {
		return true
	}
	for _, tag := range a.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
