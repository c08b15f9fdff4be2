package ports

import (
	"context"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

// ImageService acquires runnable images: pull by reference, build from a
// Dockerfile (inline or remote), or build from a cloned git repository.
// Long-running operations stream progress to the injected output sink.
type ImageService interface {
	// ImageExists checks local image presence. A daemon 404 means
	// "absent", not an error.
	ImageExists(ctx context.Context, ref string) (bool, error)

	// Pull pulls an image by reference, streaming progress.
	Pull(ctx context.Context, ref string) error

	// BuildInline builds from Dockerfile text packaged as a minimal
	// single-file build context, tagged with tag.
	BuildInline(ctx context.Context, dockerfile, tag string) error

	// BuildRemote fetches a Dockerfile from a URL and builds. If
	// contextURL is non-empty its archive becomes the build context,
	// with the fetched Dockerfile always winning over any Dockerfile
	// embedded in the archive.
	BuildRemote(ctx context.Context, dockerfileURL, contextURL, tag string) error

	// BuildGit clones or updates the repository, checks out the
	// requested ref, archives the tree and builds. Returns the resolved
	// commit hash.
	BuildGit(ctx context.Context, src *domain.GitSource, tag string) (string, error)
}
