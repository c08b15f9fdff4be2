package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
	"github.com/vulnpkg/vulnpkg/internal/core/ports"
)

const (
	proxyImage         = "traefik:v3.0"
	proxyContainerName = "vuln-pkg-traefik"
	proxyLabelValue    = "traefik"
)

// Bootstrapper implements ports.ProxyService: it keeps exactly one Traefik
// container running on the shared network, discovering app containers
// through their labels. Discovery is allow-list only; containers must opt
// in with an explicit enable label.
type Bootstrapper struct {
	adapter *Adapter
	images  ports.ImageService
	log     *slog.Logger
}

// NewBootstrapper wires the proxy bootstrapper over the shared docker
// adapter and the image service (for pulling the proxy image).
func NewBootstrapper(adapter *Adapter, images ports.ImageService, log *slog.Logger) *Bootstrapper {
	return &Bootstrapper{adapter: adapter, images: images, log: log}
}

// Running returns the proxy container id if it is up. A proxy container
// found in any other state is removed so the next Ensure creates a fresh
// one instead of resuming stale configuration.
func (b *Bootstrapper) Running(ctx context.Context) (string, error) {
	f := filters.NewArgs(filters.Arg("name", proxyContainerName))
	containers, err := b.adapter.cli.ContainerList(ctx, types.ContainerListOptions{All: true, Filters: f})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}

	for _, c := range containers {
		for _, n := range c.Names {
			if n != "/"+proxyContainerName {
				continue
			}
			if c.State == "running" {
				return c.ID, nil
			}
			b.log.Debug("removing stopped proxy container", "container", c.ID)
			if err := b.adapter.RemoveContainer(ctx, c.ID); err != nil {
				return "", err
			}
			return "", nil
		}
	}
	return "", nil
}

// Ensure idempotently brings the proxy up: dashboard enabled, docker
// discovery scoped to the shared network, plaintext entrypoint on host
// port 80 and, with https, a secure entrypoint on 443.
func (b *Bootstrapper) Ensure(ctx context.Context, networkID, dom string, https bool) (string, error) {
	if id, err := b.Running(ctx); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}

	exists, err := b.images.ImageExists(ctx, proxyImage)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := b.images.Pull(ctx, proxyImage); err != nil {
			return "", err
		}
	}

	cmd := []string{
		"--api.dashboard=true",
		"--api.insecure=true",
		"--providers.docker=true",
		"--providers.docker.exposedbydefault=false",
		"--providers.docker.network=" + domain.NetworkName,
		"--entrypoints.web.address=:80",
	}
	if https {
		cmd = append(cmd, "--entrypoints.websecure.address=:443")
	}

	exposed := nat.PortSet{"80/tcp": struct{}{}}
	bindings := nat.PortMap{
		"80/tcp": {{HostIP: "0.0.0.0", HostPort: "80"}},
	}
	if https {
		exposed["443/tcp"] = struct{}{}
		bindings["443/tcp"] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "443"}}
	}

	labels := map[string]string{
		domain.OwnerLabel: proxyLabelValue,
		"traefik.enable":  "true",
		"traefik.http.routers.traefik-dashboard.rule":    fmt.Sprintf("Host(`traefik.%s`)", dom),
		"traefik.http.routers.traefik-dashboard.service": "api@internal",
	}

	config := &container.Config{
		Image:        proxyImage,
		Cmd:          cmd,
		Labels:       labels,
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindings,
		Mounts: []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   "/var/run/docker.sock",
			Target:   "/var/run/docker.sock",
			ReadOnly: true,
		}},
	}
	networking := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			domain.NetworkName: {NetworkID: networkID},
		},
	}

	resp, err := b.adapter.cli.ContainerCreate(ctx, config, hostConfig, networking, nil, proxyContainerName)
	if err != nil {
		return "", fmt.Errorf("failed to create proxy container: %w", err)
	}
	if err := b.adapter.StartContainer(ctx, resp.ID); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Teardown stops and removes the proxy container if one is up.
func (b *Bootstrapper) Teardown(ctx context.Context) error {
	id, err := b.Running(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	if err := b.adapter.StopContainer(ctx, id); err != nil {
		return err
	}
	return b.adapter.RemoveContainer(ctx, id)
}
