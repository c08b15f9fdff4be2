package cli

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulnpkg/vulnpkg/internal/adapters/builder"
	"github.com/vulnpkg/vulnpkg/internal/adapters/docker"
	"github.com/vulnpkg/vulnpkg/internal/adapters/manifest"
	"github.com/vulnpkg/vulnpkg/internal/adapters/output"
	"github.com/vulnpkg/vulnpkg/internal/adapters/state"
	"github.com/vulnpkg/vulnpkg/internal/core/services"
)

const defaultManifestURL = "https://raw.githubusercontent.com/vuln-pkg/vuln-pkg/main/manifest.yml"

var (
	jsonFlag       bool
	manifestURL    string
	resolveAddress string
	domainFlag     string
	httpsFlag      bool
	yesFlag        bool
	verboseFlag    bool

	app *env
)

// env holds the wired adapters and services shared by all commands. It is
// assembled once per invocation, after flag parsing.
type env struct {
	store    *state.Store
	printer  *output.Printer
	fetcher  *manifest.Fetcher
	docker   *docker.Adapter
	proxy    *docker.Bootstrapper
	images   *builder.Adapter
	apps     *services.AppService
	domain   string
	https    bool
	log      *slog.Logger
}

var rootCmd = &cobra.Command{
	Use:   "vuln-pkg",
	Short: "A package manager for deliberately-vulnerable applications",
	Long: `vuln-pkg provisions containerized vulnerable applications for
security training. Apps are described by a remote manifest, built or
pulled on demand, and routed through a shared Traefik reverse proxy
with per-app hostnames. TCP/UDP services are published directly on
allocated host ports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonFlag, "json", false, "output in JSON format for automation")
	pf.StringVar(&manifestURL, "manifest-url", defaultManifestURL, "manifest URL to fetch apps from")
	pf.StringVar(&resolveAddress, "resolve-address", "127.0.0.1", "address that app hostnames resolve to")
	pf.StringVar(&domainFlag, "domain", "", "domain suffix for app hostnames (default: sslip.io for the resolve address)")
	pf.BoolVar(&httpsFlag, "https", false, "enable HTTPS with self-signed certificates")
	pf.BoolVarP(&yesFlag, "yes", "y", false, "auto-accept manifests without prompting")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "show daemon progress output")
}

// setup wires the adapter stack and reconciles persisted state against
// the daemon before any command logic runs.
func setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	printer := output.New(jsonFlag, verboseFlag)

	store, err := state.NewStore()
	if err != nil {
		return err
	}
	if err := store.Init(); err != nil {
		return err
	}

	dockerAdapter, err := docker.NewAdapter(log)
	if err != nil {
		return err
	}
	images := builder.NewAdapter(dockerAdapter.Client(), store.ReposDir(), printer, log)
	proxy := docker.NewBootstrapper(dockerAdapter, images, log)

	app = &env{
		store:   store,
		printer: printer,
		fetcher: manifest.NewFetcher(store, printer, yesFlag),
		docker:  dockerAdapter,
		proxy:   proxy,
		images:  images,
		apps:    services.NewAppService(store, dockerAdapter, proxy, images, printer, log),
		domain:  resolveDomain(),
		https:   httpsFlag,
		log:     log,
	}

	// Persisted running flags are a cache of daemon reality; correct
	// them before the command acts on them.
	return services.NewReconciler(store, dockerAdapter, log).Reconcile(cmd.Context())
}

// resolveDomain returns the explicit domain flag, or an sslip.io domain
// derived from the resolve address for zero-config DNS.
func resolveDomain() string {
	if domainFlag != "" {
		return domainFlag
	}
	addr := resolveAddress
	if ip := net.ParseIP(addr); ip == nil {
		addr = "127.0.0.1"
	}
	return addr + ".sslip.io"
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if app != nil {
			app.printer.Error(err.Error())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
