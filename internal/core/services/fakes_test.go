package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory StateStore. Save replaces the held document so
// tests can inspect exactly what was persisted.
type memStore struct {
	state    *domain.State
	saved    int
	loadErr  error
	accepted map[string]domain.AcceptedManifest
}

func newMemStore() *memStore {
	return &memStore{
		state:    domain.NewState(),
		accepted: make(map[string]domain.AcceptedManifest),
	}
}

func (m *memStore) Load() (*domain.State, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.state, nil
}

func (m *memStore) Save(state *domain.State) error {
	m.state = state
	m.saved++
	return nil
}

func (m *memStore) IsManifestAccepted(url string) (bool, error) {
	_, ok := m.accepted[url]
	return ok, nil
}

func (m *memStore) AcceptManifest(url string, meta domain.ManifestMeta) error {
	m.accepted[url] = domain.AcceptedManifest{Author: meta.Author}
	return nil
}

func (m *memStore) ForgetManifest(url string) (bool, error) {
	_, ok := m.accepted[url]
	delete(m.accepted, url)
	return ok, nil
}

func (m *memStore) AcceptedManifests() (map[string]domain.AcceptedManifest, error) {
	return m.accepted, nil
}

func (m *memStore) CacheManifest(url string, content []byte) (string, error) {
	return "", nil
}

// fakeDocker simulates the daemon with an in-memory container table.
type fakeDocker struct {
	pingErr        error
	running        map[string]bool // container id -> running
	names          map[string]string
	managed        []domain.ManagedContainer
	networkID      string
	networkCreates int
	created        []domain.ContainerSpec
	started        []string
	stopped        []string
	removed        []string
	nextID         string
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{
		running:   make(map[string]bool),
		names:     make(map[string]string),
		networkID: "net-1",
		nextID:    "c-1",
	}
}

func (f *fakeDocker) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeDocker) EnsureNetwork(ctx context.Context) (string, error) {
	f.networkCreates++
	return f.networkID, nil
}

func (f *fakeDocker) CreateContainer(ctx context.Context, spec domain.ContainerSpec) (string, error) {
	f.created = append(f.created, spec)
	id := f.nextID
	f.names[spec.Name] = id
	return id, nil
}

func (f *fakeDocker) StartContainer(ctx context.Context, id string) error {
	f.started = append(f.started, id)
	f.running[id] = true
	return nil
}

func (f *fakeDocker) StopContainer(ctx context.Context, id string) error {
	f.stopped = append(f.stopped, id)
	f.running[id] = false
	return nil
}

func (f *fakeDocker) RemoveContainer(ctx context.Context, id string) error {
	f.removed = append(f.removed, id)
	delete(f.running, id)
	return nil
}

func (f *fakeDocker) ContainerRunning(ctx context.Context, id string) (bool, error) {
	return f.running[id], nil
}

func (f *fakeDocker) FindContainerByName(ctx context.Context, name string) (string, error) {
	return f.names[name], nil
}

func (f *fakeDocker) ListManaged(ctx context.Context) ([]domain.ManagedContainer, error) {
	return f.managed, nil
}

// fakeProxy tracks how often the proxy is actually created.
type fakeProxy struct {
	id        string
	ensures   int
	teardowns int
}

func (f *fakeProxy) Ensure(ctx context.Context, networkID, dom string, https bool) (string, error) {
	f.ensures++
	if f.id == "" {
		f.id = "proxy-1"
	}
	return f.id, nil
}

func (f *fakeProxy) Running(ctx context.Context) (string, error) {
	return f.id, nil
}

func (f *fakeProxy) Teardown(ctx context.Context) error {
	f.teardowns++
	f.id = ""
	return nil
}

// fakeImages records acquisition calls without touching a daemon.
type fakeImages struct {
	existing map[string]bool
	pulled   []string
	builds   []string
	commit   string
}

func newFakeImages() *fakeImages {
	return &fakeImages{existing: make(map[string]bool), commit: "abcdef1234567890"}
}

func (f *fakeImages) ImageExists(ctx context.Context, ref string) (bool, error) {
	return f.existing[ref], nil
}

func (f *fakeImages) Pull(ctx context.Context, ref string) error {
	f.pulled = append(f.pulled, ref)
	f.existing[ref] = true
	return nil
}

func (f *fakeImages) BuildInline(ctx context.Context, dockerfile, tag string) error {
	f.builds = append(f.builds, tag)
	f.existing[tag] = true
	return nil
}

func (f *fakeImages) BuildRemote(ctx context.Context, dockerfileURL, contextURL, tag string) error {
	f.builds = append(f.builds, tag)
	f.existing[tag] = true
	return nil
}

func (f *fakeImages) BuildGit(ctx context.Context, src *domain.GitSource, tag string) (string, error) {
	f.builds = append(f.builds, tag)
	f.existing[tag] = true
	return f.commit, nil
}

// discardOutput drops every event.
type discardOutput struct{}

func (discardOutput) Info(string)    {}
func (discardOutput) Success(string) {}
func (discardOutput) Warning(string) {}
func (discardOutput) Error(string)   {}
func (discardOutput) Debug(string)   {}

var errDaemonDown = errors.New("cannot connect to the docker daemon")
