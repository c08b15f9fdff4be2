package ports

import "context"

// ProxyService manages the single shared reverse-proxy container.
type ProxyService interface {
	// Ensure idempotently brings up the proxy attached to the shared
	// network and returns its container id. A proxy container found in a
	// non-running state is removed and recreated, never resumed.
	Ensure(ctx context.Context, networkID, domain string, https bool) (string, error)

	// Running returns the proxy container id if it is up, "" otherwise.
	Running(ctx context.Context) (string, error)

	// Teardown stops and removes the proxy container if present.
	Teardown(ctx context.Context) error
}
