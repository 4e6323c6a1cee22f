package sync

import (
	"errors"
	"fmt"
)

var (
	ErrSyncAlreadyRunning = errors.New("sync already running")
	ErrVersionTooOld      = errors.New("updater version is older than the manifest requires")
)

// ManifestFetchError aborts a pass before anything is touched.
type ManifestFetchError struct {
	URL string // redacted
	Err error
}

func (e *ManifestFetchError) Error() string {
	return fmt.Sprintf("sync: fetch manifest %s: %v", e.URL, e.Err)
}

func (e *ManifestFetchError) Unwrap() error {
	return e.Err
}

// VersionGateError aborts a pass when the running updater is older than the
// manifest's minimum version.
type VersionGateError struct {
	Current  string
	Required string
	Err      error
}

func (e *VersionGateError) Error() string {
	return fmt.Sprintf("sync: version %s does not satisfy minimum %s: %v", e.Current, e.Required, e.Err)
}

func (e *VersionGateError) Unwrap() error {
	return e.Err
}

// FileInUseError is recorded when a file selected for deletion could not be
// removed, typically because the game still holds it open.
type FileInUseError struct {
	Path string
	Err  error
}

func (e *FileInUseError) Error() string {
	return fmt.Sprintf("sync: delete %s: %v", e.Path, e.Err)
}

func (e *FileInUseError) Unwrap() error {
	return e.Err
}
