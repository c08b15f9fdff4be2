package ports

import (
	"github.com/vulnpkg/vulnpkg/internal/core/domain"
)

// StateStore owns the persisted state document and the manifest trust
// records. The state file is read fully, mutated in memory and written
// fully back; concurrent invocations against the same directory are not
// supported.
type StateStore interface {
	Load() (*domain.State, error)
	Save(state *domain.State) error

	IsManifestAccepted(url string) (bool, error)
	AcceptManifest(url string, meta domain.ManifestMeta) error
	ForgetManifest(url string) (bool, error)
	AcceptedManifests() (map[string]domain.AcceptedManifest, error)
	CacheManifest(url string, content []byte) (string, error)
}
