package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/flier268/Minecraft-updater/internal/utils"
)

const lockFile = ".minecraft_updater.lock"

var (
	ErrWorkspaceLocked = errors.New("sync root locked by another process")
	ErrOutsideRoot     = errors.New("path escapes the sync root")
)

// Workspace is the local directory tree kept in sync with a manifest,
// usually a game installation.
type Workspace struct {
	Root string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	return &Workspace{
		Root:  root,
		flock: flock.New(filepath.Join(root, lockFile)),
	}, nil
}

// Lock takes the advisory lock that keeps two updaters from syncing the same
// root at the same time.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.Root, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock sync root: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	slog.Debug("sync root locked", "root", w.Root)
	return nil
}

func (w *Workspace) Unlock() error {
	// only the holder removes the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock sync root: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// LockPath is the lock file, which sync passes must never touch.
func (w *Workspace) LockPath() string {
	return w.flock.Path()
}

// AbsPath maps a slash separated manifest path to a path under Root.
func (w *Workspace) AbsPath(relPath string) (string, error) {
	rel := filepath.FromSlash(NormPath(relPath))
	abs := filepath.Join(w.Root, rel)

	check, err := filepath.Rel(w.Root, abs)
	if err != nil || check == ".." || strings.HasPrefix(check, ".."+PathSep) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, relPath)
	}
	return abs, nil
}

// RelPath returns absPath relative to Root with forward slashes.
func (w *Workspace) RelPath(absPath string) (string, error) {
	relPath, err := filepath.Rel(w.Root, absPath)
	if err != nil {
		return "", err
	}
	return NormPath(relPath), nil
}

// NormPath cleans a path, converts backslashes to slashes and trims leading
// slashes.
func NormPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	path = strings.TrimLeft(path, "/")
	return path
}
