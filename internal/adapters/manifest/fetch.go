package manifest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/vulnpkg/vulnpkg/internal/adapters/output"
	"github.com/vulnpkg/vulnpkg/internal/core/domain"
	"github.com/vulnpkg/vulnpkg/internal/core/ports"
)

// Fetcher retrieves application manifests and runs the trust workflow:
// unseen manifest URLs are shown to the user and must be accepted before
// their apps can be used. Accepted URLs are remembered.
type Fetcher struct {
	store      ports.StateStore
	printer    *output.Printer
	httpc      *http.Client
	in         io.Reader
	autoAccept bool
}

// NewFetcher wires a manifest fetcher. autoAccept trusts every manifest
// without prompting (the -y flag).
func NewFetcher(store ports.StateStore, printer *output.Printer, autoAccept bool) *Fetcher {
	return &Fetcher{
		store:      store,
		printer:    printer,
		httpc:      http.DefaultClient,
		in:         os.Stdin,
		autoAccept: autoAccept,
	}
}

// Fetch retrieves, validates, trust-checks and caches the manifest at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Manifest, error) {
	f.printer.Info(fmt.Sprintf("Fetching manifest from %s", url))

	m, raw, err := f.Peek(ctx, url)
	if err != nil {
		return nil, err
	}

	accepted, err := f.store.IsManifestAccepted(url)
	if err != nil {
		return nil, err
	}

	if !accepted {
		f.printer.ManifestInfo(url, m)

		if f.autoAccept {
			f.printer.Info("Auto-accepting manifest (-y flag)")
		} else if !f.prompt(m, raw) {
			return nil, domain.ErrManifestRejected
		}

		if err := f.store.AcceptManifest(url, m.Meta); err != nil {
			return nil, err
		}
		f.printer.Success("Manifest accepted and remembered for future use")
	}

	if _, err := f.store.CacheManifest(url, raw); err != nil {
		return nil, err
	}

	f.printer.Success(fmt.Sprintf("Loaded %d applications", len(m.Apps)))
	return m, nil
}

// Peek retrieves and parses the manifest without the trust workflow, for
// review commands.
func (f *Fetcher) Peek(ctx context.Context, url string) (*domain.Manifest, []byte, error) {
	raw, err := f.read(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	m, err := domain.ParseManifest(raw)
	if err != nil {
		return nil, nil, err
	}
	return m, raw, nil
}

// read loads manifest bytes from an HTTP(S) URL or a local path.
func (f *Fetcher) read(ctx context.Context, url string) ([]byte, error) {
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		return readLocal(path)
	}
	if strings.HasPrefix(url, "/") || strings.HasPrefix(url, ".") {
		return readLocal(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	return body, nil
}

func readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.FetchError{URL: path, Err: err}
	}
	return data, nil
}

// prompt asks the user to accept an unseen manifest. "show" dumps the raw
// YAML and asks again. JSON mode cannot ask an interactive question, so
// unaccepted manifests are rejected outright there.
func (f *Fetcher) prompt(m *domain.Manifest, raw []byte) bool {
	if f.printer.JSONMode() {
		return false
	}

	f.printer.Warning("This manifest has not been accepted before.")
	f.printer.Warning("Review the information above and decide whether to trust it.")

	scanner := bufio.NewScanner(f.in)
	for {
		f.printer.Prompt("Accept this manifest? [y/N/show]: ")
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "show", "s", "view":
			f.printer.ShowManifestYAML(string(raw))
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
