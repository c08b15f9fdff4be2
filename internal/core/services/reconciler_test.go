package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileClearsGoneContainer(t *testing.T) {
	store := newMemStore()
	store.state.App("dvwa").Running = true
	store.state.App("dvwa").ContainerID = "gone"

	docker := newFakeDocker() // "gone" is not in its table

	r := NewReconciler(store, docker, testLogger())
	require.NoError(t, r.Reconcile(context.Background()))

	assert.False(t, store.state.Apps["dvwa"].Running)
	assert.Equal(t, 1, store.saved)
}

func TestReconcileKeepsLiveContainer(t *testing.T) {
	store := newMemStore()
	store.state.App("dvwa").Running = true
	store.state.App("dvwa").ContainerID = "c-live"

	docker := newFakeDocker()
	docker.running["c-live"] = true

	r := NewReconciler(store, docker, testLogger())
	require.NoError(t, r.Reconcile(context.Background()))

	assert.True(t, store.state.Apps["dvwa"].Running)
	assert.Zero(t, store.saved)
}

func TestReconcileClearsRunningWithoutContainerID(t *testing.T) {
	store := newMemStore()
	store.state.App("dvwa").Running = true

	r := NewReconciler(store, newFakeDocker(), testLogger())
	require.NoError(t, r.Reconcile(context.Background()))

	assert.False(t, store.state.Apps["dvwa"].Running)
}

func TestReconcileClearsGoneProxy(t *testing.T) {
	store := newMemStore()
	store.state.ProxyContainerID = "proxy-old"

	r := NewReconciler(store, newFakeDocker(), testLogger())
	require.NoError(t, r.Reconcile(context.Background()))

	assert.Empty(t, store.state.ProxyContainerID)
}

func TestReconcileFailsOpenWhenDaemonUnreachable(t *testing.T) {
	store := newMemStore()
	store.state.App("dvwa").Running = true
	store.state.App("dvwa").ContainerID = "gone"

	docker := newFakeDocker()
	docker.pingErr = errDaemonDown

	r := NewReconciler(store, docker, testLogger())
	require.NoError(t, r.Reconcile(context.Background()))

	// State is left untouched so read-only commands keep working offline.
	assert.True(t, store.state.Apps["dvwa"].Running)
	assert.Zero(t, store.saved)
}

func TestReconcileIgnoresStoppedApps(t *testing.T) {
	store := newMemStore()
	store.state.App("dvwa").Installed = true

	r := NewReconciler(store, newFakeDocker(), testLogger())
	require.NoError(t, r.Reconcile(context.Background()))

	assert.Zero(t, store.saved)
	assert.True(t, store.state.Apps["dvwa"].Installed)
}

func TestReconcileLoadError(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("corrupt state file")
	r := NewReconciler(store, newFakeDocker(), testLogger())
	assert.Error(t, r.Reconcile(context.Background()))
}
