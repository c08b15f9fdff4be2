package domain

import (
	"errors"
	"fmt"
)

// ErrManifestRejected is returned when the user declines to trust a
// manifest.
var ErrManifestRejected = errors.New("manifest rejected by user")

// AppNotFoundError: the requested app is not in the manifest.
type AppNotFoundError struct{ Name string }

func (e *AppNotFoundError) Error() string {
	return fmt.Sprintf("application %q not found in manifest", e.Name)
}

// NotInstalledError: the app has no persisted instance record.
type NotInstalledError struct{ Name string }

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("application %q is not installed", e.Name)
}

// AlreadyRunningError: the app's container is already up.
type AlreadyRunningError struct{ Name string }

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("application %q is already running", e.Name)
}

// NotRunningError: a stop was requested for an app that is not running.
type NotRunningError struct{ Name string }

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("application %q is not running", e.Name)
}

// NotRebuildableError: rebuild was requested for a prebuilt app.
type NotRebuildableError struct{ Name string }

func (e *NotRebuildableError) Error() string {
	return fmt.Sprintf("application %q is a prebuilt package and cannot be rebuilt", e.Name)
}

// ValidationError: a descriptor is missing required fields for its kind.
// Raised before any daemon call.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string {
	return "manifest validation error: " + e.Msg
}

// FetchError: a remote manifest, Dockerfile, build context or git remote
// could not be reached. Not retried.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BuildError: the daemon reported an error frame mid-build.
type BuildError struct {
	Image   string
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build image %q: %s", e.Image, e.Message)
}

// GitError: clone, fetch or checkout against a repository failed.
type GitError struct {
	Repo string
	Op   string
	Err  error
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s failed for %q: %v", e.Op, e.Repo, e.Err)
}

func (e *GitError) Unwrap() error { return e.Err }

// PortCapacityError: fewer free ports remain in the allocation range than
// were requested.
type PortCapacityError struct {
	Requested int
	Available int
}

func (e *PortCapacityError) Error() string {
	return fmt.Sprintf("port range exhausted: requested %d host ports, %d available", e.Requested, e.Available)
}
