package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
	"github.com/vulnpkg/vulnpkg/internal/core/ports"
)

// AppService orchestrates the lifecycle of application instances: image
// acquisition, network and proxy bootstrap, port allocation, container
// creation and persisted-state upkeep. One command runs to completion per
// invocation; there is no intra-run parallelism.
type AppService struct {
	store  ports.StateStore
	docker ports.ContainerService
	proxy  ports.ProxyService
	images ports.ImageService
	out    ports.Output
	log    *slog.Logger
}

// NewAppService wires the orchestration service over its collaborators.
func NewAppService(
	store ports.StateStore,
	docker ports.ContainerService,
	proxy ports.ProxyService,
	images ports.ImageService,
	out ports.Output,
	log *slog.Logger,
) *AppService {
	return &AppService{
		store:  store,
		docker: docker,
		proxy:  proxy,
		images: images,
		out:    out,
		log:    log,
	}
}

// RunResult reports where a started instance is reachable.
type RunResult struct {
	Hostnames []string
	Ports     []domain.AllocatedPort
}

// InstanceStatus is one row of the status report, with liveness checked
// against the daemon rather than trusted from the state file.
type InstanceStatus struct {
	Name        string                 `json:"name"`
	Running     bool                   `json:"running"`
	ContainerID string                 `json:"container_id,omitempty"`
	Hostnames   []string               `json:"hostnames,omitempty"`
	Ports       []domain.AllocatedPort `json:"ports,omitempty"`
}

// Install acquires the app's image and records the install in state.
func (s *AppService) Install(ctx context.Context, app *domain.App) error {
	effective := app.EffectiveImage()

	var commit string
	switch app.Kind {
	case domain.KindPrebuilt:
		exists, err := s.images.ImageExists(ctx, effective)
		if err != nil {
			return err
		}
		if exists {
			s.out.Info(fmt.Sprintf("Image %s already exists", effective))
		} else if err := s.images.Pull(ctx, effective); err != nil {
			return err
		}
	case domain.KindDockerfile:
		src := app.Dockerfile
		if src.Inline != "" {
			if err := s.images.BuildInline(ctx, src.Inline, effective); err != nil {
				return err
			}
		} else {
			if err := s.images.BuildRemote(ctx, src.URL, src.ContextURL, effective); err != nil {
				return err
			}
		}
	case domain.KindGit:
		var err error
		commit, err = s.images.BuildGit(ctx, app.Git, effective)
		if err != nil {
			return err
		}
	}

	state, err := s.store.Load()
	if err != nil {
		return err
	}
	st := state.App(app.Name)
	st.Installed = true
	st.ImageSource = app.Kind
	st.ImageTag = effective
	if commit != "" {
		st.GitCommit = commit
	}
	st.BuiltAt = time.Now().UTC().Format(time.RFC3339)
	return s.store.Save(state)
}

// Run brings the app up: ensures image, network and proxy, allocates host
// ports for direct-mapped services, then creates and starts the container
// with its routing labels.
func (s *AppService) Run(ctx context.Context, app *domain.App, dom string, https bool) (*RunResult, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	if st, ok := state.Apps[app.Name]; ok && st.Running && st.ContainerID != "" {
		running, err := s.docker.ContainerRunning(ctx, st.ContainerID)
		if err != nil {
			return nil, err
		}
		if running {
			return nil, &domain.AlreadyRunningError{Name: app.Name}
		}
	}

	effective := app.EffectiveImage()
	exists, err := s.images.ImageExists(ctx, effective)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := s.Install(ctx, app); err != nil {
			return nil, err
		}
		state, err = s.store.Load()
		if err != nil {
			return nil, err
		}
	}

	s.out.Info("Ensuring vuln-pkg network exists")
	networkID, err := s.docker.EnsureNetwork(ctx)
	if err != nil {
		return nil, err
	}
	state.NetworkID = networkID

	proxyID, err := s.proxy.Running(ctx)
	if err != nil {
		return nil, err
	}
	if proxyID == "" {
		s.out.Info("Starting Traefik reverse proxy")
		proxyID, err = s.proxy.Ensure(ctx, networkID, dom, https)
		if err != nil {
			return nil, err
		}
		s.out.Success(fmt.Sprintf("Traefik running (dashboard: http://traefik.%s)", dom))
	}
	state.ProxyContainerID = proxyID

	// A leftover container from a previous run would collide on name and
	// hold stale port allocations; clear both before allocating.
	if staleID, err := s.docker.FindContainerByName(ctx, app.ContainerName()); err != nil {
		return nil, err
	} else if staleID != "" {
		s.log.Debug("removing stale container", "app", app.Name, "container", staleID)
		if err := s.docker.RemoveContainer(ctx, staleID); err != nil {
			return nil, err
		}
	}
	state.App(app.Name).ClearRuntime()

	allocated, err := AllocateDirectPorts(app, state.UsedHostPorts())
	if err != nil {
		return nil, err
	}

	labels, hostnames := RoutingLabels(app, dom, https)

	s.out.Info(fmt.Sprintf("Creating container for %s", app.Name))
	containerID, err := s.docker.CreateContainer(ctx, domain.ContainerSpec{
		Name:        app.ContainerName(),
		Image:       effective,
		Labels:      labels,
		Env:         app.Env,
		NetworkID:   networkID,
		DirectPorts: allocated,
	})
	if err != nil {
		return nil, err
	}

	s.out.Info("Starting container")
	if err := s.docker.StartContainer(ctx, containerID); err != nil {
		return nil, err
	}

	st := state.App(app.Name)
	st.Installed = true
	st.Running = true
	st.ContainerID = containerID
	st.Hostnames = hostnames
	st.Ports = allocated
	if err := s.store.Save(state); err != nil {
		return nil, err
	}

	return &RunResult{Hostnames: hostnames, Ports: allocated}, nil
}

// Stop gracefully stops the app's container and clears the running flag.
func (s *AppService) Stop(ctx context.Context, name string) error {
	state, err := s.store.Load()
	if err != nil {
		return err
	}

	st, ok := state.Apps[name]
	if !ok {
		return &domain.NotInstalledError{Name: name}
	}
	if !st.Running || st.ContainerID == "" {
		return &domain.NotRunningError{Name: name}
	}

	s.out.Info(fmt.Sprintf("Stopping container %s", shortID(st.ContainerID)))

	// Best-effort query-then-act: a container that disappeared between
	// the check and the stop is already in the desired state.
	running, err := s.docker.ContainerRunning(ctx, st.ContainerID)
	if err != nil {
		return err
	}
	if running {
		if err := s.docker.StopContainer(ctx, st.ContainerID); err != nil {
			return err
		}
	}

	st.Running = false
	return s.store.Save(state)
}

// Remove stops and removes the app's container and deletes its state
// entry. Removing the last running managed instance also tears down the
// proxy, reclaiming it until something needs routing again.
func (s *AppService) Remove(ctx context.Context, name string, purge bool) error {
	state, err := s.store.Load()
	if err != nil {
		return err
	}

	st, ok := state.Apps[name]
	if !ok {
		return &domain.NotInstalledError{Name: name}
	}

	if st.ContainerID != "" {
		s.out.Info(fmt.Sprintf("Stopping container %s", shortID(st.ContainerID)))
		running, err := s.docker.ContainerRunning(ctx, st.ContainerID)
		if err != nil {
			return err
		}
		if running {
			if err := s.docker.StopContainer(ctx, st.ContainerID); err != nil {
				return err
			}
		}
		s.out.Info("Removing container")
		if err := s.docker.RemoveContainer(ctx, st.ContainerID); err != nil {
			return err
		}
	}

	if purge {
		s.out.Warning("Image removal not implemented yet with --purge")
	}

	delete(state.Apps, name)

	managed, err := s.docker.ListManaged(ctx)
	if err != nil {
		return err
	}
	runningCount := 0
	for _, c := range managed {
		if c.Running {
			runningCount++
		}
	}
	if runningCount == 0 {
		s.out.Info("No more apps running, stopping Traefik")
		if err := s.proxy.Teardown(ctx); err != nil {
			return err
		}
		state.ProxyContainerID = ""
	}

	return s.store.Save(state)
}

// Rebuild re-runs the build for a dockerfile or git app. Prebuilt apps
// have nothing to rebuild.
func (s *AppService) Rebuild(ctx context.Context, app *domain.App) error {
	if app.Kind == domain.KindPrebuilt {
		return &domain.NotRebuildableError{Name: app.Name}
	}

	effective := app.EffectiveImage()
	s.out.Info(fmt.Sprintf("Rebuilding %s", app.Name))

	var commit string
	switch app.Kind {
	case domain.KindDockerfile:
		src := app.Dockerfile
		if src.Inline != "" {
			if err := s.images.BuildInline(ctx, src.Inline, effective); err != nil {
				return err
			}
		} else {
			if err := s.images.BuildRemote(ctx, src.URL, src.ContextURL, effective); err != nil {
				return err
			}
		}
	case domain.KindGit:
		var err error
		commit, err = s.images.BuildGit(ctx, app.Git, effective)
		if err != nil {
			return err
		}
	}

	state, err := s.store.Load()
	if err != nil {
		return err
	}
	st := state.App(app.Name)
	if commit != "" {
		st.GitCommit = commit
	}
	st.BuiltAt = time.Now().UTC().Format(time.RFC3339)
	return s.store.Save(state)
}

// Status reports every managed instance with liveness checked against the
// daemon.
func (s *AppService) Status(ctx context.Context) ([]InstanceStatus, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(state.Apps))
	for name := range state.Apps {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]InstanceStatus, 0, len(names))
	for _, name := range names {
		st := state.Apps[name]
		running := false
		if st.ContainerID != "" {
			// Ignore errors here: an unreachable daemon just reads as
			// stopped in the report.
			running, _ = s.docker.ContainerRunning(ctx, st.ContainerID)
		}
		rows = append(rows, InstanceStatus{
			Name:        name,
			Running:     running,
			ContainerID: st.ContainerID,
			Hostnames:   st.Hostnames,
			Ports:       st.Ports,
		})
	}
	return rows, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
