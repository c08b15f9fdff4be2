package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/pkg/archive"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/vulnpkg/vulnpkg/internal/core/domain"
	"github.com/vulnpkg/vulnpkg/internal/core/ports"
)

// BuildGit clones the repository into the local cache (or fetches updates
// into an existing clone), checks out the requested ref with a detached
// HEAD, archives the working tree and builds it. The resolved commit hash
// is returned for the caller's records.
func (a *Adapter) BuildGit(ctx context.Context, src *domain.GitSource, tag string) (string, error) {
	dir := filepath.Join(a.reposDir, sanitizeRepoURL(src.Repo))

	repo, err := a.syncRepo(ctx, src.Repo, dir)
	if err != nil {
		return "", err
	}

	commit, err := a.checkout(repo, src.Repo, src.Ref)
	if err != nil {
		return "", err
	}
	a.out.Info(fmt.Sprintf("Checked out %s", commit))

	dockerfile := strings.TrimPrefix(src.DockerfilePath, "./")
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	buildCtx, err := archive.TarWithOptions(dir, &archive.TarOptions{
		ExcludePatterns: []string{".git"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}
	defer buildCtx.Close()

	a.out.Info(fmt.Sprintf("Building image %s", tag))
	if err := a.build(ctx, buildCtx, dockerfile, tag); err != nil {
		return "", err
	}
	return commit, nil
}

// syncRepo returns an up-to-date clone of url at dir: a fresh clone the
// first time, a fetch into the cached clone afterwards.
func (a *Adapter) syncRepo(ctx context.Context, url, dir string) (*git.Repository, error) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return nil, &domain.GitError{Repo: url, Op: "open", Err: err}
		}
		a.out.Info(fmt.Sprintf("Updating cached clone of %s", url))
		err = repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			Tags:       git.AllTags,
			Force:      true,
			Progress:   &debugWriter{out: a.out},
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil, &domain.GitError{Repo: url, Op: "fetch", Err: err}
		}
		return repo, nil
	}

	a.out.Info(fmt.Sprintf("Cloning %s", url))
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      url,
		Progress: &debugWriter{out: a.out},
	})
	if err != nil {
		return nil, &domain.GitError{Repo: url, Op: "clone", Err: err}
	}
	return repo, nil
}

// checkout resolves ref (trying the literal rev first, then origin/<ref>
// so plain branch names work) and hard-checks-out that commit, detaching
// HEAD. With no ref, the working tree is hard-reset to the remote's
// default branch as of the last fetch, so a cached clone picks up
// upstream commits instead of staying at the clone-time HEAD.
func (a *Adapter) checkout(repo *git.Repository, url, ref string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", &domain.GitError{Repo: url, Op: "worktree", Err: err}
	}

	if ref == "" {
		hash, err := defaultBranchHash(repo)
		if err != nil {
			return "", &domain.GitError{Repo: url, Op: "resolve HEAD", Err: err}
		}
		// Reset moves the branch ref along with the tree, keeping HEAD
		// attached so the next acquisition can find the branch again.
		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: *hash}); err != nil {
			return "", &domain.GitError{Repo: url, Op: "reset", Err: err}
		}
		return hash.String(), nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		hash, err = repo.ResolveRevision(plumbing.Revision("origin/" + ref))
		if err != nil {
			return "", &domain.GitError{Repo: url, Op: "resolve ref " + ref, Err: err}
		}
	}

	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return "", &domain.GitError{Repo: url, Op: "checkout " + ref, Err: err}
	}
	return hash.String(), nil
}

// defaultBranchHash resolves the commit the remote's default branch points
// at: the remote-tracking ref of the branch HEAD is on, then origin/HEAD,
// then the local HEAD itself for clones with no tracking refs.
func defaultBranchHash(repo *git.Repository) (*plumbing.Hash, error) {
	if head, err := repo.Reference(plumbing.HEAD, false); err == nil && head.Type() == plumbing.SymbolicReference {
		if hash, err := repo.ResolveRevision(plumbing.Revision("origin/" + head.Target().Short())); err == nil {
			return hash, nil
		}
	}
	if hash, err := repo.ResolveRevision("origin/HEAD"); err == nil {
		return hash, nil
	}
	head, err := repo.Head()
	if err != nil {
		return nil, err
	}
	hash := head.Hash()
	return &hash, nil
}

// sanitizeRepoURL turns a repository URL into a filesystem-safe cache
// directory name.
func sanitizeRepoURL(url string) string {
	return strings.NewReplacer("/", "_", ":", "_", ".", "_").Replace(url)
}

// debugWriter forwards sideband progress lines from git to the sink.
type debugWriter struct {
	out ports.Output
}

func (w *debugWriter) Write(p []byte) (int, error) {
	if line := strings.TrimSpace(string(p)); line != "" {
		w.out.Debug(line)
	}
	return len(p), nil
}
