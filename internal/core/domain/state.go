package domain

import "sort"

// AllocatedPort records one direct TCP/UDP mapping held by an instance.
// Host ports are drawn from the shared allocation range and must be unique
// across all instances at any instant.
type AllocatedPort struct {
	ContainerPort int      `json:"container_port"`
	HostPort      int      `json:"host_port"`
	Protocol      Protocol `json:"protocol"`
	Label         string   `json:"label,omitempty"`
}

// AppState is the persisted record for one application instance. It is a
// cache of daemon-side reality: the container id, running flag, hostnames
// and port allocations are cleared whenever the container is gone.
type AppState struct {
	Installed   bool            `json:"installed"`
	Running     bool            `json:"running"`
	ContainerID string          `json:"container_id,omitempty"`
	Hostnames   []string        `json:"hostnames,omitempty"`
	Ports       []AllocatedPort `json:"ports,omitempty"`
	ImageSource AcquireKind     `json:"image_source"`
	ImageTag    string          `json:"image_tag,omitempty"`
	GitCommit   string          `json:"git_commit,omitempty"`
	BuiltAt     string          `json:"built_at,omitempty"`
}

// ClearRuntime invalidates the fields owned by a live container.
func (a *AppState) ClearRuntime() {
	a.Running = false
	a.ContainerID = ""
	a.Hostnames = nil
	a.Ports = nil
}

// State is the whole persisted document: per-app records plus the cached
// network and proxy identifiers. Absent identifiers trigger lazy creation.
type State struct {
	Apps             map[string]*AppState `json:"apps"`
	NetworkID        string               `json:"network_id,omitempty"`
	ProxyContainerID string               `json:"traefik_container_id,omitempty"`
}

// NewState returns an empty state document.
func NewState() *State {
	return &State{Apps: make(map[string]*AppState)}
}

// App returns the record for name, creating it if absent.
func (s *State) App(name string) *AppState {
	if s.Apps == nil {
		s.Apps = make(map[string]*AppState)
	}
	st, ok := s.Apps[name]
	if !ok {
		st = &AppState{}
		s.Apps[name] = st
	}
	return st
}

// UsedHostPorts collects every host port currently held by any instance,
// sorted ascending. This is the input to the port allocator; there is no
// separate free-list to go stale.
func (s *State) UsedHostPorts() []int {
	var ports []int
	for _, app := range s.Apps {
		for _, p := range app.Ports {
			ports = append(ports, p.HostPort)
		}
	}
	sort.Ints(ports)
	return ports
}

// AcceptedManifest records that the user trusted a manifest URL.
type AcceptedManifest struct {
	AcceptedAt  string `json:"accepted_at"`
	Author      string `json:"author,omitempty"`
	Email       string `json:"email,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}
