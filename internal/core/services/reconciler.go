package services

import (
	"context"
	"log/slog"

	"github.com/vulnpkg/vulnpkg/internal/core/ports"
)

// Reconciler corrects persisted "running" flags against actual daemon
// state. It runs once per invocation, before any command logic.
type Reconciler struct {
	store  ports.StateStore
	docker ports.ContainerService
	log    *slog.Logger
}

// NewReconciler wires a reconciler over the state store and daemon.
func NewReconciler(store ports.StateStore, docker ports.ContainerService, log *slog.Logger) *Reconciler {
	return &Reconciler{store: store, docker: docker, log: log}
}

// Reconcile self-heals the state file. An unreachable daemon skips
// reconciliation entirely (fail open) so read-only commands still work
// offline; persisted state is a cache, never trusted blindly.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	state, err := r.store.Load()
	if err != nil {
		return err
	}

	if err := r.docker.Ping(ctx); err != nil {
		r.log.Debug("daemon unreachable, skipping state reconciliation", "error", err)
		return nil
	}

	changed := false

	for name, app := range state.Apps {
		if !app.Running {
			continue
		}
		if app.ContainerID == "" {
			// Flagged running with no container id is an impossible
			// state; clear it.
			app.Running = false
			changed = true
			r.log.Debug("cleared running flag with no container id", "app", name)
			continue
		}
		running, err := r.docker.ContainerRunning(ctx, app.ContainerID)
		if err != nil || !running {
			app.Running = false
			changed = true
			r.log.Debug("container no longer running", "app", name, "container", app.ContainerID)
		}
	}

	if state.ProxyContainerID != "" {
		running, err := r.docker.ContainerRunning(ctx, state.ProxyContainerID)
		if err == nil && !running {
			state.ProxyContainerID = ""
			changed = true
			r.log.Debug("cached proxy container is gone")
		}
	}

	if changed {
		return r.store.Save(state)
	}
	return nil
}
