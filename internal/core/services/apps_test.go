package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

func newTestService() (*AppService, *memStore, *fakeDocker, *fakeProxy, *fakeImages) {
	store := newMemStore()
	docker := newFakeDocker()
	proxy := &fakeProxy{}
	images := newFakeImages()
	svc := NewAppService(store, docker, proxy, images, discardOutput{}, testLogger())
	return svc, store, docker, proxy, images
}

func prebuiltApp(name, image string, ports ...domain.PortConfig) *domain.App {
	return &domain.App{
		Name:     name,
		Version:  "1.0",
		Kind:     domain.KindPrebuilt,
		Prebuilt: &domain.PrebuiltSource{Image: image},
		Ports:    ports,
	}
}

func TestInstallPrebuiltPullsWhenAbsent(t *testing.T) {
	svc, store, _, _, images := newTestService()
	app := prebuiltApp("dvwa", "vulnerables/web-dvwa")

	require.NoError(t, svc.Install(context.Background(), app))

	assert.Equal(t, []string{"vulnerables/web-dvwa"}, images.pulled)
	st := store.state.Apps["dvwa"]
	require.NotNil(t, st)
	assert.True(t, st.Installed)
	assert.Equal(t, domain.KindPrebuilt, st.ImageSource)
	assert.Equal(t, "vulnerables/web-dvwa", st.ImageTag)
	assert.NotEmpty(t, st.BuiltAt)
}

func TestInstallPrebuiltSkipsExistingImage(t *testing.T) {
	svc, _, _, _, images := newTestService()
	images.existing["vulnerables/web-dvwa"] = true

	require.NoError(t, svc.Install(context.Background(), prebuiltApp("dvwa", "vulnerables/web-dvwa")))

	assert.Empty(t, images.pulled)
}

func TestInstallGitRecordsCommit(t *testing.T) {
	svc, store, _, _, images := newTestService()
	app := &domain.App{
		Name:    "git-app",
		Version: "1.0",
		Kind:    domain.KindGit,
		Git:     &domain.GitSource{Repo: "https://github.com/user/app.git", Ref: "main"},
	}

	require.NoError(t, svc.Install(context.Background(), app))

	assert.Equal(t, []string{"vuln-pkg/git-app:1.0"}, images.builds)
	st := store.state.Apps["git-app"]
	assert.Equal(t, images.commit, st.GitCommit)
	assert.Equal(t, domain.KindGit, st.ImageSource)
}

func TestRunStartsContainerWithRoutingLabels(t *testing.T) {
	svc, store, docker, _, images := newTestService()
	images.existing["vulnerables/web-dvwa"] = true
	app := prebuiltApp("dvwa", "vulnerables/web-dvwa",
		domain.PortConfig{Port: 80, Protocol: domain.ProtocolHTTP})

	res, err := svc.Run(context.Background(), app, "lab.test", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"dvwa.lab.test"}, res.Hostnames)
	assert.Empty(t, res.Ports)

	require.Len(t, docker.created, 1)
	spec := docker.created[0]
	assert.Equal(t, "vuln-pkg-dvwa", spec.Name)
	assert.Equal(t, "vulnerables/web-dvwa", spec.Image)
	assert.Equal(t, "true", spec.Labels["traefik.enable"])
	assert.Equal(t, "net-1", spec.NetworkID)
	assert.Len(t, docker.started, 1)

	st := store.state.Apps["dvwa"]
	assert.True(t, st.Running)
	assert.NotEmpty(t, st.ContainerID)
	assert.Equal(t, []string{"dvwa.lab.test"}, st.Hostnames)
}

func TestRunInstallsMissingImage(t *testing.T) {
	svc, _, _, _, images := newTestService()
	app := prebuiltApp("dvwa", "vulnerables/web-dvwa",
		domain.PortConfig{Port: 80, Protocol: domain.ProtocolHTTP})

	_, err := svc.Run(context.Background(), app, "lab.test", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"vulnerables/web-dvwa"}, images.pulled)
}

func TestRunAlreadyRunning(t *testing.T) {
	svc, store, docker, _, images := newTestService()
	images.existing["vulnerables/web-dvwa"] = true
	store.state.App("dvwa").Running = true
	store.state.App("dvwa").ContainerID = "c-live"
	docker.running["c-live"] = true

	_, err := svc.Run(context.Background(), prebuiltApp("dvwa", "vulnerables/web-dvwa"), "lab.test", false)

	var already *domain.AlreadyRunningError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "dvwa", already.Name)
}

func TestRunRemovesStaleContainer(t *testing.T) {
	// A stopped leftover with the same name would collide on create; it is
	// removed and its stale port allocations are dropped first.
	svc, store, docker, _, images := newTestService()
	images.existing["vulnerables/web-dvwa"] = true
	docker.names["vuln-pkg-dvwa"] = "old-1"
	st := store.state.App("dvwa")
	st.ContainerID = "old-1"
	st.Ports = []domain.AllocatedPort{{ContainerPort: 27017, HostPort: 40000, Protocol: domain.ProtocolTCP}}

	app := prebuiltApp("dvwa", "vulnerables/web-dvwa",
		domain.PortConfig{Port: 27017, Protocol: domain.ProtocolTCP})

	res, err := svc.Run(context.Background(), app, "lab.test", false)
	require.NoError(t, err)

	assert.Contains(t, docker.removed, "old-1")
	// The freed port is reallocated, not leaked.
	require.Len(t, res.Ports, 1)
	assert.Equal(t, 40000, res.Ports[0].HostPort)
}

func TestRunAllocatesDisjointHostPorts(t *testing.T) {
	svc, _, _, _, images := newTestService()
	images.existing["mongo:8"] = true
	images.existing["redis:7"] = true

	res1, err := svc.Run(context.Background(),
		prebuiltApp("mongobleed", "mongo:8", domain.PortConfig{Port: 27017, Protocol: domain.ProtocolTCP}),
		"lab.test", false)
	require.NoError(t, err)

	res2, err := svc.Run(context.Background(),
		prebuiltApp("redis-vuln", "redis:7", domain.PortConfig{Port: 6379, Protocol: domain.ProtocolTCP}),
		"lab.test", false)
	require.NoError(t, err)

	require.Len(t, res1.Ports, 1)
	require.Len(t, res2.Ports, 1)
	assert.Equal(t, 40000, res1.Ports[0].HostPort)
	assert.Equal(t, 40001, res2.Ports[0].HostPort)
}

func TestRunStartsProxyOnce(t *testing.T) {
	svc, store, _, proxy, images := newTestService()
	images.existing["a:1"] = true
	images.existing["b:1"] = true

	_, err := svc.Run(context.Background(),
		prebuiltApp("a", "a:1", domain.PortConfig{Port: 80, Protocol: domain.ProtocolHTTP}),
		"lab.test", false)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(),
		prebuiltApp("b", "b:1", domain.PortConfig{Port: 80, Protocol: domain.ProtocolHTTP}),
		"lab.test", false)
	require.NoError(t, err)

	// The second run finds the proxy already up and does not recreate it.
	assert.Equal(t, 1, proxy.ensures)
	assert.Equal(t, "proxy-1", store.state.ProxyContainerID)
}

func TestStop(t *testing.T) {
	svc, store, docker, _, _ := newTestService()
	st := store.state.App("dvwa")
	st.Running = true
	st.ContainerID = "c-live"
	docker.running["c-live"] = true

	require.NoError(t, svc.Stop(context.Background(), "dvwa"))

	assert.Contains(t, docker.stopped, "c-live")
	assert.False(t, store.state.Apps["dvwa"].Running)
}

func TestStopAlreadyGoneContainer(t *testing.T) {
	// The container vanished outside our control; stop just records the
	// new reality.
	svc, store, docker, _, _ := newTestService()
	st := store.state.App("dvwa")
	st.Running = true
	st.ContainerID = "gone"

	require.NoError(t, svc.Stop(context.Background(), "dvwa"))

	assert.Empty(t, docker.stopped)
	assert.False(t, store.state.Apps["dvwa"].Running)
}

func TestStopNotInstalled(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	var notInstalled *domain.NotInstalledError
	assert.ErrorAs(t, svc.Stop(context.Background(), "ghost"), &notInstalled)
}

func TestStopNotRunning(t *testing.T) {
	svc, store, _, _, _ := newTestService()
	store.state.App("dvwa").Installed = true

	var notRunning *domain.NotRunningError
	assert.ErrorAs(t, svc.Stop(context.Background(), "dvwa"), &notRunning)
}

func TestRemoveTearsDownProxyWhenLastInstance(t *testing.T) {
	svc, store, docker, proxy, _ := newTestService()
	proxy.id = "proxy-1"
	store.state.ProxyContainerID = "proxy-1"
	st := store.state.App("dvwa")
	st.Running = true
	st.ContainerID = "c-live"
	docker.running["c-live"] = true

	require.NoError(t, svc.Remove(context.Background(), "dvwa", false))

	assert.Contains(t, docker.removed, "c-live")
	assert.NotContains(t, store.state.Apps, "dvwa")
	assert.Equal(t, 1, proxy.teardowns)
	assert.Empty(t, store.state.ProxyContainerID)
}

func TestRemoveKeepsProxyWhileOthersRun(t *testing.T) {
	svc, store, docker, proxy, _ := newTestService()
	proxy.id = "proxy-1"
	store.state.ProxyContainerID = "proxy-1"
	store.state.App("dvwa").ContainerID = "c-1"
	docker.managed = []domain.ManagedContainer{
		{ID: "c-other", Name: "vuln-pkg-other", Running: true},
	}

	require.NoError(t, svc.Remove(context.Background(), "dvwa", false))

	assert.Zero(t, proxy.teardowns)
	assert.Equal(t, "proxy-1", store.state.ProxyContainerID)
}

func TestRemoveNotInstalled(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	var notInstalled *domain.NotInstalledError
	assert.ErrorAs(t, svc.Remove(context.Background(), "ghost", false), &notInstalled)
}

func TestRebuildPrebuiltRejected(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	var notRebuildable *domain.NotRebuildableError
	err := svc.Rebuild(context.Background(), prebuiltApp("dvwa", "vulnerables/web-dvwa"))
	assert.ErrorAs(t, err, &notRebuildable)
}

func TestRebuildGitUpdatesCommit(t *testing.T) {
	svc, store, _, _, images := newTestService()
	store.state.App("git-app").GitCommit = "oldcommit"
	images.commit = "newcommit123"
	app := &domain.App{
		Name:    "git-app",
		Version: "1.0",
		Kind:    domain.KindGit,
		Git:     &domain.GitSource{Repo: "https://github.com/user/app.git"},
	}

	require.NoError(t, svc.Rebuild(context.Background(), app))

	assert.Equal(t, []string{"vuln-pkg/git-app:1.0"}, images.builds)
	assert.Equal(t, "newcommit123", store.state.Apps["git-app"].GitCommit)
}

func TestStatusChecksDaemonLiveness(t *testing.T) {
	svc, store, docker, _, _ := newTestService()
	a := store.state.App("alpha")
	a.Running = true
	a.ContainerID = "c-a"
	docker.running["c-a"] = true
	b := store.state.App("beta")
	b.Running = true // stale: the daemon has no such container
	b.ContainerID = "c-b"

	rows, err := svc.Status(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "alpha", rows[0].Name)
	assert.True(t, rows[0].Running)
	assert.Equal(t, "beta", rows[1].Name)
	assert.False(t, rows[1].Running)
}
