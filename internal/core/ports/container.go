package ports

import (
	"context"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

// ContainerService defines the lifecycle operations against the container
// daemon. The daemon is the source of truth for what is actually running;
// everything here is synchronous query/act with no atomic guarantee.
type ContainerService interface {
	// Ping verifies the daemon is reachable.
	Ping(ctx context.Context) error

	// EnsureNetwork looks up the shared network by name and creates it
	// with the bridge driver only if absent. Idempotent.
	EnsureNetwork(ctx context.Context) (string, error)

	// CreateContainer creates (but does not start) a container.
	CreateContainer(ctx context.Context, spec domain.ContainerSpec) (string, error)

	StartContainer(ctx context.Context, id string) error

	// StopContainer stops gracefully, with a bounded grace period before
	// the daemon force-kills.
	StopContainer(ctx context.Context, id string) error

	// RemoveContainer force-removes regardless of running state.
	// Idempotent on already-gone containers.
	RemoveContainer(ctx context.Context, id string) error

	// ContainerRunning treats a daemon 404 as "not running", not an error.
	ContainerRunning(ctx context.Context, id string) (bool, error)

	// FindContainerByName returns the id of the named container, or ""
	// if it does not exist.
	FindContainerByName(ctx context.Context, name string) (string, error)

	// ListManaged enumerates containers carrying the ownership label,
	// excluding the proxy's own container.
	ListManaged(ctx context.Context) ([]domain.ManagedContainer, error)
}
