package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/flier268/Minecraft-updater/internal/utils"
	"github.com/google/uuid"
)

const (
	CleanupPIDFlag = "cleanup-pid"
	scratchPrefix  = "Minecraft_updater_update_"
)

var ErrExecutableNotFound = errors.New("executable not found in release archive")

// Downloader is satisfied by *fetch.Client.
type Downloader interface {
	DownloadVerified(ctx context.Context, rawURL, dest, expectedHash string, opts ...fetch.DownloadOption) error
}

// SelfReplaceError reports the step that failed and, when the rollback also
// failed, why the installation could not be restored.
type SelfReplaceError struct {
	Step        string
	Err         error
	RollbackErr error
}

func (e *SelfReplaceError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("self update %s: %v (rollback: %v)", e.Step, e.Err, e.RollbackErr)
	}
	return fmt.Sprintf("self update %s: %v", e.Step, e.Err)
}

func (e *SelfReplaceError) Unwrap() []error {
	if e.RollbackErr != nil {
		return []error{e.Err, e.RollbackErr}
	}
	return []error{e.Err}
}

// TempPath returns the sibling name a file is staged under, "name.temp.ext".
func TempPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".temp" + ext
}

type renamedFile struct {
	Original string
	Temp     string
}

// Transaction swaps the running executable and its companion files for the
// content of a release archive.
type Transaction struct {
	exePath     string
	installDir  string
	companions  []string
	downloader  Downloader
	scratchRoot string
	logger      *slog.Logger
	start       func(path string, args []string) error
	exit        func(code int)

	renamed []renamedFile
}

type TransactionOption func(*Transaction)

// WithCompanions adds files, relative to the executable's directory, that
// are staged alongside it.
func WithCompanions(names ...string) TransactionOption {
	return func(t *Transaction) {
		t.companions = append(t.companions, names...)
	}
}

func WithLogger(l *slog.Logger) TransactionOption {
	return func(t *Transaction) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithScratchDir(dir string) TransactionOption {
	return func(t *Transaction) {
		if dir != "" {
			t.scratchRoot = dir
		}
	}
}

func WithStarter(fn func(path string, args []string) error) TransactionOption {
	return func(t *Transaction) {
		if fn != nil {
			t.start = fn
		}
	}
}

func WithExit(fn func(code int)) TransactionOption {
	return func(t *Transaction) {
		if fn != nil {
			t.exit = fn
		}
	}
}

func NewTransaction(exePath string, downloader Downloader, opts ...TransactionOption) *Transaction {
	t := &Transaction{
		exePath:     exePath,
		installDir:  filepath.Dir(exePath),
		downloader:  downloader,
		scratchRoot: os.TempDir(),
		logger:      utils.DiscardLogger(),
		start:       startDetached,
		exit:        os.Exit,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func startDetached(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func (t *Transaction) stagedPaths() []string {
	paths := []string{t.exePath}
	for _, c := range t.companions {
		if c = strings.TrimSpace(c); c == "" {
			continue
		}
		if !filepath.IsAbs(c) {
			c = filepath.Join(t.installDir, c)
		}
		paths = append(paths, c)
	}
	return paths
}

// Stage renames the executable and its companions to their temp names.
// Missing companions are skipped. A failure leaves already renamed files
// recorded for Rollback.
func (t *Transaction) Stage() error {
	for _, path := range t.stagedPaths() {
		if !utils.FileExists(path) {
			if path == t.exePath {
				return fmt.Errorf("stage %q: %w", path, os.ErrNotExist)
			}
			continue
		}

		tmp := TempPath(path)
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stage %q: %w", path, err)
		}
		if err := os.Rename(path, tmp); err != nil {
			return fmt.Errorf("stage %q: %w", path, err)
		}
		t.renamed = append(t.renamed, renamedFile{Original: path, Temp: tmp})
		t.logger.Debug("staged", "file", path, "temp", tmp)
	}
	return nil
}

// Apply downloads the release archive, extracts it to a scratch directory
// and copies the payload over the installation directory. The scratch
// directory is always removed.
func (t *Transaction) Apply(ctx context.Context, info *UpdateInfo) error {
	scratch := filepath.Join(t.scratchRoot, scratchPrefix+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	name := info.AssetName
	if name == "" {
		name = "release"
	}
	archivePath := filepath.Join(scratch, filepath.Base(name))

	t.logger.Info("downloading release", "version", info.Version, "asset", info.AssetName)
	if err := t.downloader.DownloadVerified(ctx, info.DownloadURL, archivePath, info.SHA256); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	extractDir := filepath.Join(scratch, "extract")
	if err := extractArchive(archivePath, extractDir); err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	exeName := filepath.Base(t.exePath)
	src, ok := findExecutableDir(extractDir, exeName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, exeName)
	}

	if err := copyDir(src, t.installDir); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	t.logger.Info("release installed", "version", info.Version, "dir", t.installDir)
	return nil
}

// Rollback restores every staged file, newest first, removing any partially
// installed replacement before renaming the original back.
func (t *Transaction) Rollback() error {
	var errs []error
	for i := len(t.renamed) - 1; i >= 0; i-- {
		r := t.renamed[i]
		if err := os.Remove(r.Original); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("rollback %q: %w", r.Original, err))
			continue
		}
		if err := os.Rename(r.Temp, r.Original); err != nil {
			errs = append(errs, fmt.Errorf("rollback %q: %w", r.Original, err))
			continue
		}
		t.logger.Debug("restored", "file", r.Original)
	}
	t.renamed = nil
	return errors.Join(errs...)
}

// RelaunchArgs forwards args to the new process and asks it to clean up
// after this one.
func RelaunchArgs(args []string, pid int) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if strings.HasPrefix(a, "--"+CleanupPIDFlag) {
			continue
		}
		out = append(out, a)
	}
	return append(out, "--"+CleanupPIDFlag+"="+strconv.Itoa(pid))
}

// Relaunch starts the installed executable and exits the current process.
func (t *Transaction) Relaunch(args []string) error {
	if err := t.start(t.exePath, RelaunchArgs(args, os.Getpid())); err != nil {
		return fmt.Errorf("start %q: %w", t.exePath, err)
	}
	t.logger.Info("relaunching", "exe", t.exePath)
	t.exit(0)
	return nil
}

// Run performs the whole replacement. Any failure after staging is rolled
// back before the error is returned.
func (t *Transaction) Run(ctx context.Context, info *UpdateInfo, args []string) error {
	if info == nil || info.DownloadURL == "" {
		return ErrNoAsset
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"stage", t.Stage},
		{"apply", func() error { return t.Apply(ctx, info) }},
		{"relaunch", func() error { return t.Relaunch(args) }},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.logger.Error("self update failed", "step", s.name, "error", err)
			return &SelfReplaceError{Step: s.name, Err: err, RollbackErr: t.Rollback()}
		}
	}
	return nil
}
