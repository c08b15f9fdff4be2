package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

// Grace period before the daemon force-kills a stopping container.
const stopGraceSeconds = 10

// Adapter implements ports.ContainerService using the Docker SDK.
type Adapter struct {
	cli *client.Client
	log *slog.Logger
}

// NewAdapter creates a new Docker adapter instance.
func NewAdapter(log *slog.Logger) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli, log: log}, nil
}

// Client exposes the underlying SDK client so sibling adapters (proxy,
// builder) can share one connection.
func (a *Adapter) Client() *client.Client {
	return a.cli
}

// Ping verifies the daemon is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if _, err := a.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon not reachable: %w", err)
	}
	return nil
}

// EnsureNetwork returns the id of the shared bridge network, creating it
// only if no network with that name exists yet.
func (a *Adapter) EnsureNetwork(ctx context.Context) (string, error) {
	f := filters.NewArgs(filters.Arg("name", domain.NetworkName))
	networks, err := a.cli.NetworkList(ctx, types.NetworkListOptions{Filters: f})
	if err != nil {
		return "", fmt.Errorf("failed to list networks: %w", err)
	}
	for _, n := range networks {
		// The name filter matches substrings; require the exact name.
		if n.Name == domain.NetworkName {
			return n.ID, nil
		}
	}

	a.log.Debug("creating network", "name", domain.NetworkName)
	resp, err := a.cli.NetworkCreate(ctx, domain.NetworkName, types.NetworkCreate{Driver: "bridge"})
	if err != nil {
		return "", fmt.Errorf("failed to create network: %w", err)
	}
	return resp.ID, nil
}

// CreateContainer creates a container per spec, attached to the shared
// network, with its routing labels and direct TCP/UDP port publications.
// It does not start the container.
func (a *Adapter) CreateContainer(ctx context.Context, spec domain.ContainerSpec) (string, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.DirectPorts {
		port := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, p.Protocol))
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{
			HostIP:   "0.0.0.0",
			HostPort: fmt.Sprintf("%d", p.HostPort),
		}}
	}

	config := &container.Config{
		Image:        spec.Image,
		Labels:       spec.Labels,
		Env:          spec.Env,
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindings,
	}
	networking := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			domain.NetworkName: {NetworkID: spec.NetworkID},
		},
	}

	resp, err := a.cli.ContainerCreate(ctx, config, hostConfig, networking, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

// StartContainer starts a created container.
func (a *Adapter) StartContainer(ctx context.Context, id string) error {
	if err := a.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

// StopContainer stops gracefully, letting the daemon force-kill after the
// grace period.
func (a *Adapter) StopContainer(ctx context.Context, id string) error {
	timeout := stopGraceSeconds
	if err := a.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// RemoveContainer force-removes the container. Already-gone containers
// are not an error.
func (a *Adapter) RemoveContainer(ctx context.Context, id string) error {
	err := a.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// ContainerRunning reports liveness. A 404 from the daemon means "not
// running", not an error.
func (a *Adapter) ContainerRunning(ctx context.Context, id string) (bool, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container: %w", err)
	}
	return info.State != nil && info.State.Running, nil
}

// FindContainerByName returns the id of the container with exactly the
// given name, or "" when absent.
func (a *Adapter) FindContainerByName(ctx context.Context, name string) (string, error) {
	f := filters.NewArgs(filters.Arg("name", name))
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{All: true, Filters: f})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}
	for _, c := range containers {
		for _, n := range c.Names {
			if n == "/"+name {
				return c.ID, nil
			}
		}
	}
	return "", nil
}

// ListManaged enumerates containers carrying the ownership label. The
// proxy tags itself with the label too and is excluded here.
func (a *Adapter) ListManaged(ctx context.Context) ([]domain.ManagedContainer, error) {
	f := filters.NewArgs(filters.Arg("label", domain.OwnerLabel))
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var result []domain.ManagedContainer
	for _, c := range containers {
		name := c.Labels[domain.OwnerLabel]
		if name == proxyLabelValue {
			continue
		}
		result = append(result, domain.ManagedContainer{
			ID:      c.ID,
			Name:    name,
			Running: c.State == "running",
		})
	}
	return result, nil
}
