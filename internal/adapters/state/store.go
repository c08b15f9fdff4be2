package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

const (
	stateDirName          = ".vuln-pkg"
	manifestsDirName      = "manifests"
	imagesDirName         = "images"
	reposDirName          = "repos"
	stateFileName         = "state.json"
	acceptedManifestsFile = "accepted-manifests.json"
)

// Store implements ports.StateStore over a base directory holding the
// JSON state document, the manifests cache, an images scratch area and
// the git-clone cache. The state file is read fully, mutated in memory
// and written fully back; concurrent invocations are not supported.
type Store struct {
	baseDir string
}

// NewStore roots the store at ~/.vuln-pkg.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	return NewStoreAt(filepath.Join(home, stateDirName)), nil
}

// NewStoreAt roots the store at an explicit directory.
func NewStoreAt(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the directory layout and an empty state file on first use.
func (s *Store) Init() error {
	for _, dir := range []string{s.ManifestsDir(), s.ImagesDir(), s.ReposDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state dir: %w", err)
		}
	}
	if _, err := os.Stat(s.stateFile()); os.IsNotExist(err) {
		return s.Save(domain.NewState())
	}
	return nil
}

func (s *Store) BaseDir() string      { return s.baseDir }
func (s *Store) ManifestsDir() string { return filepath.Join(s.baseDir, manifestsDirName) }
func (s *Store) ImagesDir() string    { return filepath.Join(s.baseDir, imagesDirName) }
func (s *Store) ReposDir() string     { return filepath.Join(s.baseDir, reposDirName) }

func (s *Store) stateFile() string {
	return filepath.Join(s.baseDir, stateFileName)
}

func (s *Store) acceptedFile() string {
	return filepath.Join(s.baseDir, acceptedManifestsFile)
}

// Load reads the state document; a missing file reads as empty state.
func (s *Store) Load() (*domain.State, error) {
	data, err := os.ReadFile(s.stateFile())
	if os.IsNotExist(err) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state := domain.NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return state, nil
}

// Save writes the state document atomically: to a temp file in the same
// directory, then renamed over the destination, so a crash mid-write
// cannot leave a truncated state file.
func (s *Store) Save(state *domain.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	return s.writeAtomic(s.stateFile(), data)
}

func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// CacheManifest stores a fetched manifest under a filename derived from
// its URL, and returns the cache path.
func (s *Store) CacheManifest(url string, content []byte) (string, error) {
	path := filepath.Join(s.ManifestsDir(), urlToFilename(url))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to cache manifest: %w", err)
	}
	return path, nil
}

// AcceptedManifests returns the trust records keyed by manifest URL.
func (s *Store) AcceptedManifests() (map[string]domain.AcceptedManifest, error) {
	data, err := os.ReadFile(s.acceptedFile())
	if os.IsNotExist(err) {
		return map[string]domain.AcceptedManifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read accepted manifests: %w", err)
	}

	var doc struct {
		Manifests map[string]domain.AcceptedManifest `json:"manifests"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse accepted manifests: %w", err)
	}
	if doc.Manifests == nil {
		doc.Manifests = map[string]domain.AcceptedManifest{}
	}
	return doc.Manifests, nil
}

func (s *Store) saveAccepted(manifests map[string]domain.AcceptedManifest) error {
	doc := struct {
		Manifests map[string]domain.AcceptedManifest `json:"manifests"`
	}{Manifests: manifests}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize accepted manifests: %w", err)
	}
	return s.writeAtomic(s.acceptedFile(), data)
}

// IsManifestAccepted reports whether the URL has been trusted before.
func (s *Store) IsManifestAccepted(url string) (bool, error) {
	accepted, err := s.AcceptedManifests()
	if err != nil {
		return false, err
	}
	_, ok := accepted[url]
	return ok, nil
}

// AcceptManifest records the user's trust decision for a manifest URL.
func (s *Store) AcceptManifest(url string, meta domain.ManifestMeta) error {
	accepted, err := s.AcceptedManifests()
	if err != nil {
		return err
	}
	accepted[url] = domain.AcceptedManifest{
		AcceptedAt:  time.Now().UTC().Format(time.RFC3339),
		Author:      meta.Author,
		Email:       meta.Email,
		URL:         meta.URL,
		Description: meta.Description,
	}
	return s.saveAccepted(accepted)
}

// ForgetManifest drops the trust record for a URL, reporting whether one
// existed.
func (s *Store) ForgetManifest(url string) (bool, error) {
	accepted, err := s.AcceptedManifests()
	if err != nil {
		return false, err
	}
	if _, ok := accepted[url]; !ok {
		return false, nil
	}
	delete(accepted, url)
	return true, s.saveAccepted(accepted)
}

func urlToFilename(url string) string {
	return strings.NewReplacer("/", "_", ":", "_", ".", "_").Replace(url) + ".yml"
}
