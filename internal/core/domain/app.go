package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Shared resource names. Every container and network this tool creates is
// tagged or named with these so it can be found again on later invocations.
const (
	// OwnerLabel is the label key marking containers managed by vuln-pkg.
	OwnerLabel = "vuln-pkg"
	// NetworkName is the shared bridge network all managed containers join.
	NetworkName = "vuln-pkg"
	// ContainerPrefix is prepended to app names to form container names.
	ContainerPrefix = "vuln-pkg-"
	// ImageNamespace prefixes image tags synthesized for built apps.
	ImageNamespace = "vuln-pkg"
)

// Protocol selects how a declared port is exposed: HTTP ports are routed
// through the reverse proxy by hostname, TCP/UDP ports are published
// straight to an allocated host port.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
)

// AcquireKind says how the image for an app is obtained.
type AcquireKind string

const (
	KindPrebuilt   AcquireKind = "prebuilt"
	KindDockerfile AcquireKind = "dockerfile"
	KindGit        AcquireKind = "git"
)

// PortConfig is one declared port. In manifests it may be written as a bare
// number (defaults to HTTP) or as a {port, protocol, label} object.
type PortConfig struct {
	Port     int      `yaml:"port" json:"port"`
	Protocol Protocol `yaml:"protocol" json:"protocol"`
	Label    string   `yaml:"label,omitempty" json:"label,omitempty"`
}

func (p *PortConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var port int
		if err := value.Decode(&port); err != nil {
			return err
		}
		*p = PortConfig{Port: port, Protocol: ProtocolHTTP}
		return nil
	}

	type plain PortConfig
	var pc plain
	if err := value.Decode(&pc); err != nil {
		return err
	}
	if pc.Protocol == "" {
		pc.Protocol = ProtocolHTTP
	}
	switch pc.Protocol {
	case ProtocolHTTP, ProtocolTCP, ProtocolUDP:
	default:
		return fmt.Errorf("unknown port protocol %q", pc.Protocol)
	}
	*p = PortConfig(pc)
	return nil
}

// IsHTTP reports whether the port is routed through the reverse proxy.
func (p PortConfig) IsHTTP() bool {
	return p.Protocol == ProtocolHTTP
}

// NeedsDirectMapping reports whether the port bypasses the proxy and is
// published to a host port instead.
func (p PortConfig) NeedsDirectMapping() bool {
	return p.Protocol == ProtocolTCP || p.Protocol == ProtocolUDP
}

// PrebuiltSource pulls a ready-made image from a registry.
type PrebuiltSource struct {
	Image string
}

// DockerfileSource builds from a Dockerfile, either inline text or fetched
// from a URL, optionally merged over a remote build-context archive.
type DockerfileSource struct {
	Inline     string
	URL        string
	ContextURL string
}

// GitSource clones a repository and builds its working tree.
type GitSource struct {
	Repo           string
	Ref            string
	DockerfilePath string
}

// App is one application descriptor from a manifest. Exactly one of the
// source fields is set, matching Kind.
type App struct {
	Name        string
	Version     string
	Kind        AcquireKind
	Prebuilt    *PrebuiltSource
	Dockerfile  *DockerfileSource
	Git         *GitSource
	Ports       []PortConfig
	Tags        []string
	Description string
	Env         []string
}

// rawApp is the flat manifest representation of an App.
type rawApp struct {
	Name           string       `yaml:"name"`
	Version        string       `yaml:"version"`
	Type           AcquireKind  `yaml:"type"`
	Image          string       `yaml:"image"`
	Ports          []PortConfig `yaml:"ports"`
	Tags           []string     `yaml:"tags"`
	Description    string       `yaml:"description"`
	Env            []string     `yaml:"env"`
	Dockerfile     string       `yaml:"dockerfile"`
	DockerfileURL  string       `yaml:"dockerfile_url"`
	ContextURL     string       `yaml:"context_url"`
	Repo           string       `yaml:"repo"`
	Ref            string       `yaml:"ref"`
	DockerfilePath string       `yaml:"dockerfile_path"`
}

func (a *App) UnmarshalYAML(value *yaml.Node) error {
	var raw rawApp
	if err := value.Decode(&raw); err != nil {
		return err
	}

	kind := raw.Type
	if kind == "" {
		kind = KindPrebuilt
	}

	app := App{
		Name:        raw.Name,
		Version:     raw.Version,
		Kind:        kind,
		Ports:       raw.Ports,
		Tags:        raw.Tags,
		Description: raw.Description,
		Env:         raw.Env,
	}

	switch kind {
	case KindPrebuilt:
		if raw.Image == "" {
			return &ValidationError{Msg: fmt.Sprintf("prebuilt app %q requires 'image' field", raw.Name)}
		}
		app.Prebuilt = &PrebuiltSource{Image: raw.Image}
	case KindDockerfile:
		if raw.Dockerfile == "" && raw.DockerfileURL == "" {
			return &ValidationError{Msg: fmt.Sprintf("dockerfile app %q requires 'dockerfile' or 'dockerfile_url' field", raw.Name)}
		}
		app.Dockerfile = &DockerfileSource{
			Inline:     raw.Dockerfile,
			URL:        raw.DockerfileURL,
			ContextURL: raw.ContextURL,
		}
	case KindGit:
		if raw.Repo == "" {
			return &ValidationError{Msg: fmt.Sprintf("git app %q requires 'repo' field", raw.Name)}
		}
		app.Git = &GitSource{
			Repo:           raw.Repo,
			Ref:            raw.Ref,
			DockerfilePath: raw.DockerfilePath,
		}
	default:
		return &ValidationError{Msg: fmt.Sprintf("app %q has unknown type %q", raw.Name, raw.Type)}
	}

	*a = app
	return nil
}

// EffectiveImage is the image reference actually used to run the app.
// Prebuilt apps use the declared image; built apps use a synthesized
// vuln-pkg/<name>:<version> tag. It is derived, never cached.
func (a *App) EffectiveImage() string {
	if a.Kind == KindPrebuilt {
		return a.Prebuilt.Image
	}
	return fmt.Sprintf("%s/%s:%s", ImageNamespace, a.Name, a.Version)
}

// ContainerName is the daemon-side name for this app's container.
func (a *App) ContainerName() string {
	return ContainerPrefix + a.Name
}

// HTTPPorts returns the ports routed through the reverse proxy, in
// declaration order.
func (a *App) HTTPPorts() []PortConfig {
	var out []PortConfig
	for _, p := range a.Ports {
		if p.IsHTTP() {
			out = append(out, p)
		}
	}
	return out
}

// DirectPorts returns the TCP/UDP ports that need host-port publication.
func (a *App) DirectPorts() []PortConfig {
	var out []PortConfig
	for _, p := range a.Ports {
		if p.NeedsDirectMapping() {
			out = append(out, p)
		}
	}
	return out
}
