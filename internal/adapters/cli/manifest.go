package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect and manage manifest trust",
}

var manifestShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the manifest and its acceptance status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app.printer.Info(fmt.Sprintf("Fetching manifest from %s", manifestURL))
		m, raw, err := app.fetcher.Peek(cmd.Context(), manifestURL)
		if err != nil {
			return err
		}
		app.printer.ManifestInfo(manifestURL, m)
		app.printer.ShowManifestYAML(string(raw))

		accepted, err := app.store.IsManifestAccepted(manifestURL)
		if err != nil {
			return err
		}
		if accepted {
			app.printer.Success("This manifest has been previously accepted")
		} else {
			app.printer.Warning("This manifest has NOT been accepted yet")
		}
		return nil
	},
}

var manifestForgetCmd = &cobra.Command{
	Use:   "forget [url]",
	Short: "Forget a previously accepted manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := manifestURL
		if len(args) == 1 {
			url = args[0]
		}
		removed, err := app.store.ForgetManifest(url)
		if err != nil {
			return err
		}
		if removed {
			app.printer.Success(fmt.Sprintf("Forgot manifest %s", url))
		} else {
			app.printer.Warning(fmt.Sprintf("Manifest %s was not accepted", url))
		}
		return nil
	},
}

var manifestAcceptedCmd = &cobra.Command{
	Use:   "accepted",
	Short: "List accepted manifests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		accepted, err := app.store.AcceptedManifests()
		if err != nil {
			return err
		}
		app.printer.AcceptedManifests(accepted)
		return nil
	},
}

func init() {
	manifestCmd.AddCommand(manifestShowCmd, manifestForgetCmd, manifestAcceptedCmd)
	rootCmd.AddCommand(manifestCmd)
}
