package domain

import (
	"gopkg.in/yaml.v3"
)

// ManifestMeta describes the manifest author, shown to the user before a
// manifest is trusted.
type ManifestMeta struct {
	Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	Email       string `yaml:"email,omitempty" json:"email,omitempty"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Manifest is a catalog of vulnerable applications.
type Manifest struct {
	Meta      ManifestMeta `yaml:"meta,omitempty"`
	Apps      []App        `yaml:"apps"`
	Signature string       `yaml:"signature,omitempty"`
}

// ParseManifest decodes and validates a YAML manifest. Kind-specific field
// requirements are enforced during decoding, so a manifest that parses is
// also valid.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindApp returns the app with the given name, or nil.
func (m *Manifest) FindApp(name string) *App {
	for i := range m.Apps {
		if m.Apps[i].Name == name {
			return &m.Apps[i]
		}
	}
	return nil
}
