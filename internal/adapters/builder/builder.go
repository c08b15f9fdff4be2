package builder

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
	"github.com/vulnpkg/vulnpkg/internal/core/ports"
)

// Adapter implements ports.ImageService: it obtains a runnable image for
// an app by pulling, building from a Dockerfile, or building a cloned git
// tree. All builds funnel through one streaming build primitive.
type Adapter struct {
	cli      *client.Client
	http     *http.Client
	reposDir string
	out      ports.Output
	log      *slog.Logger
}

// NewAdapter creates the image-acquisition adapter. reposDir is the local
// cache for git clones, keyed by sanitized repository URL.
func NewAdapter(cli *client.Client, reposDir string, out ports.Output, log *slog.Logger) *Adapter {
	return &Adapter{
		cli:      cli,
		http:     http.DefaultClient,
		reposDir: reposDir,
		out:      out,
		log:      log,
	}
}

// ImageExists checks local presence of an image. A 404-class daemon
// response means "absent"; any other daemon error is surfaced.
func (a *Adapter) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, _, err := a.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image: %w", err)
	}
	return true, nil
}

// Pull pulls an image by reference, streaming daemon progress frames to
// the output sink.
func (a *Adapter) Pull(ctx context.Context, ref string) error {
	a.out.Info(fmt.Sprintf("Pulling image: %s", ref))

	reader, err := a.cli.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	dec := json.NewDecoder(reader)
	for {
		var msg struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read pull output: %w", err)
		}
		if msg.Error != "" {
			return fmt.Errorf("failed to pull image %q: %s", ref, msg.Error)
		}
		if msg.Status != "" {
			a.out.Debug(msg.Status)
		}
	}

	a.out.Success(fmt.Sprintf("Image pulled: %s", ref))
	return nil
}

// build is the single build primitive: it submits a tar build context,
// streams the daemon's output incrementally to the sink, and surfaces any
// in-stream error frame as a fatal build failure. Success is reported only
// when the stream completes without an error frame.
func (a *Adapter) build(ctx context.Context, buildCtx io.Reader, dockerfile, tag string) error {
	resp, err := a.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: dockerfile,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		var msg struct {
			Stream string `json:"stream"`
			Error  string `json:"error"`
		}
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read build output: %w", err)
		}
		if msg.Error != "" {
			return &domain.BuildError{Image: tag, Message: msg.Error}
		}
		if line := strings.TrimRight(msg.Stream, "\n"); line != "" {
			a.out.Debug(line)
		}
	}

	a.out.Success(fmt.Sprintf("Image built: %s", tag))
	return nil
}

// BuildInline packages the Dockerfile text alone into a minimal build
// context and builds it.
func (a *Adapter) BuildInline(ctx context.Context, dockerfile, tag string) error {
	a.out.Info(fmt.Sprintf("Building image %s from Dockerfile", tag))

	buildCtx, err := inlineContext(dockerfile)
	if err != nil {
		return err
	}
	return a.build(ctx, buildCtx, "Dockerfile", tag)
}

// BuildRemote fetches the Dockerfile from a URL and builds. With a
// context URL, the fetched archive becomes the build context and the
// fetched Dockerfile replaces any Dockerfile embedded in it.
func (a *Adapter) BuildRemote(ctx context.Context, dockerfileURL, contextURL, tag string) error {
	a.out.Info(fmt.Sprintf("Fetching Dockerfile from %s", dockerfileURL))
	dockerfile, err := a.fetch(ctx, dockerfileURL)
	if err != nil {
		return err
	}

	if contextURL == "" {
		return a.BuildInline(ctx, string(dockerfile), tag)
	}

	a.out.Info(fmt.Sprintf("Fetching build context from %s", contextURL))
	archive, err := a.fetch(ctx, contextURL)
	if err != nil {
		return err
	}

	buildCtx, err := mergeContext(archive, string(dockerfile))
	if err != nil {
		return fmt.Errorf("failed to merge build context: %w", err)
	}

	a.out.Info(fmt.Sprintf("Building image %s", tag))
	return a.build(ctx, buildCtx, "Dockerfile", tag)
}

// fetch performs a plain GET and returns the body. Network and non-2xx
// failures are remote-fetch errors, fatal for the current operation.
func (a *Adapter) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	resp, err := a.http.Do(req)
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

// inlineContext packs a single Dockerfile into a tar build context.
func inlineContext(dockerfile string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	hdr := &tar.Header{
		Name: "Dockerfile",
		Mode: 0644,
		Size: int64(len(dockerfile)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := tw.Write([]byte(dockerfile)); err != nil {
		return nil, fmt.Errorf("failed to write Dockerfile to tar: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar writer: %w", err)
	}
	return &buf, nil
}
