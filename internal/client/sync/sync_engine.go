// Package sync applies a manifest to a local directory tree: it removes files
// the manifest marks for deletion and downloads every file that is missing or
// whose content hash differs.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/flier268/Minecraft-updater/internal/client/workspace"
	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/pack"
	"github.com/flier268/Minecraft-updater/internal/utils"
	"github.com/flier268/Minecraft-updater/internal/version"
)

type SyncEngine struct {
	workspace     *workspace.Workspace
	fetcher       Fetcher
	validator     *pack.Validator
	hasher        *hashing.Hasher
	clientVersion string
	workers       int
	logger        *slog.Logger
	observer      Observer
	muSync        sync.Mutex
}

type Option func(*SyncEngine)

func WithLogger(logger *slog.Logger) Option {
	return func(se *SyncEngine) {
		if logger != nil {
			se.logger = logger
		}
	}
}

// WithObserver sets the observer. Its callbacks never run concurrently,
// even with several workers.
func WithObserver(o Observer) Option {
	return func(se *SyncEngine) {
		se.observer = serialize(o)
	}
}

func WithValidator(v *pack.Validator) Option {
	return func(se *SyncEngine) {
		if v != nil {
			se.validator = v
		}
	}
}

func WithHasher(h *hashing.Hasher) Option {
	return func(se *SyncEngine) {
		if h != nil {
			se.hasher = h
		}
	}
}

// WithDefaultAlgorithm sets the digest used for entries whose hash length
// does not identify an algorithm.
func WithDefaultAlgorithm(algo hashing.Algorithm) Option {
	return func(se *SyncEngine) {
		if algo != "" {
			se.hasher = hashing.NewHasher(algo)
		}
	}
}

// WithWorkers downloads up to n files at once. Passes are sequential by
// default.
func WithWorkers(n int) Option {
	return func(se *SyncEngine) {
		if n > 0 {
			se.workers = n
		}
	}
}

// WithClientVersion overrides the version checked against the manifest's
// minimum version.
func WithClientVersion(v string) Option {
	return func(se *SyncEngine) {
		se.clientVersion = v
	}
}

func NewSyncEngine(ws *workspace.Workspace, fetcher Fetcher, opts ...Option) *SyncEngine {
	se := &SyncEngine{
		workspace:     ws,
		fetcher:       fetcher,
		validator:     pack.NewValidator(),
		hasher:        hashing.NewHasher(hashing.Default),
		clientVersion: version.Version,
		workers:       1,
		logger:        utils.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(se)
	}
	return se
}

// RunSync fetches the manifest at manifestURL and applies it.
func (se *SyncEngine) RunSync(ctx context.Context, manifestURL string) (*SyncResult, error) {
	if !se.muSync.TryLock() {
		return nil, ErrSyncAlreadyRunning
	}
	defer se.muSync.Unlock()

	m, err := se.FetchManifest(ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	return se.apply(ctx, m)
}

// FetchManifest downloads and decodes a manifest.
func (se *SyncEngine) FetchManifest(ctx context.Context, manifestURL string) (*pack.Manifest, error) {
	safeURL := se.fetcher.Redact(manifestURL)
	se.observer.log("Fetching manifest "+safeURL, ColorInfo)

	text, err := se.fetcher.FetchText(ctx, manifestURL)
	if err != nil {
		se.observer.log("Could not fetch the manifest", ColorError)
		return nil, &ManifestFetchError{URL: safeURL, Err: err}
	}

	m := pack.Decode(text)
	for _, w := range m.Warnings {
		se.logger.Warn("manifest", "line", w.Line, "error", w.Err)
	}
	se.logger.Info("manifest", "url", safeURL, "entries", len(m.Entries), "minVersion", m.MinimumVersion)
	return m, nil
}

// Apply applies an already decoded manifest.
func (se *SyncEngine) Apply(ctx context.Context, m *pack.Manifest) (*SyncResult, error) {
	if !se.muSync.TryLock() {
		return nil, ErrSyncAlreadyRunning
	}
	defer se.muSync.Unlock()

	return se.apply(ctx, m)
}

// checkVersion fails when the running updater is older than the manifest
// requires.
func (se *SyncEngine) checkVersion(m *pack.Manifest) error {
	ok, fellBack, err := version.Satisfies(se.clientVersion, m.MinimumVersion)
	if err != nil {
		return &VersionGateError{Current: se.clientVersion, Required: m.MinimumVersion, Err: err}
	}
	if fellBack && strings.TrimSpace(m.MinimumVersion) != "" {
		se.logger.Warn("manifest minimum version unparseable", "minVersion", m.MinimumVersion, "fallback", version.FallbackMinimum)
	}
	if !ok {
		return &VersionGateError{Current: se.clientVersion, Required: m.MinimumVersion, Err: ErrVersionTooOld}
	}
	return nil
}

func (se *SyncEngine) apply(ctx context.Context, m *pack.Manifest) (*SyncResult, error) {
	tStart := time.Now()

	if err := se.checkVersion(m); err != nil {
		se.observer.log(fmt.Sprintf("This updater is too old for the pack, version %s or newer is required", m.MinimumVersion), ColorError)
		return nil, err
	}

	if err := se.workspace.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := se.workspace.Unlock(); err != nil {
			se.logger.Warn("unlock sync root", "error", err)
		}
	}()

	plan, err := se.plan(ctx, m)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Total:          plan.Total(),
		Rejected:       plan.Rejected,
		Warnings:       plan.Warnings,
		MinimumVersion: m.MinimumVersion,
	}

	se.applyDeletions(plan.Deletions, result)

	err = se.applyTransfers(ctx, plan.Transfers, result)
	result.Duration = time.Since(tStart)

	se.logger.Info("sync pass",
		"total", result.Total,
		"completed", result.Completed,
		"downloaded", len(result.Downloaded),
		"skipped", len(result.Skipped),
		"deleted", len(result.Deleted),
		"kept", len(result.Kept),
		"failed", len(result.Failed),
		"rejected", len(result.Rejected),
		"tsTotal", result.Duration,
	)

	return result, err
}

// Plan reports what a pass over m would do without touching the tree.
func (se *SyncEngine) Plan(ctx context.Context, m *pack.Manifest) (*Plan, error) {
	if err := se.checkVersion(m); err != nil {
		return nil, err
	}
	return se.plan(ctx, m)
}

// caseInsensitiveFS is true where the default filesystems treat paths that
// differ only in case as one file.
var caseInsensitiveFS = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// pathKey identifies the file a relative path refers to on this platform.
func pathKey(rel string) string {
	if caseInsensitiveFS {
		return strings.ToLower(rel)
	}
	return rel
}

func (se *SyncEngine) plan(ctx context.Context, m *pack.Manifest) (*Plan, error) {
	accepted, rejected := se.validator.Filter(m.Entries)
	for _, r := range rejected {
		se.logger.Warn("entry rejected", "path", r.Entry.Path, "error", r.Err)
		se.observer.log(fmt.Sprintf("Ignoring invalid entry %s: %v", r.Entry.Path, r.Err), ColorWarning)
	}

	plan := &Plan{
		Rejected:       rejected,
		Warnings:       m.Warnings,
		MinimumVersion: m.MinimumVersion,
	}

	deletions, ifMissing, plain := pack.Partition(accepted)

	doomed := mapset.NewThreadUnsafeSet[string]()
	for _, e := range deletions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, op := range se.planDeletion(e) {
			plan.Deletions = append(plan.Deletions, op)
			if op.Action == ActionDelete {
				doomed.Add(pathKey(op.Path))
			}
		}
	}

	// one operation per destination, so parallel workers never share a path
	resolved := mapset.NewThreadUnsafeSet[string]()
	for _, e := range append(ifMissing, plain...) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := workspace.NormPath(e.Path)
		if !resolved.Add(pathKey(rel)) {
			plan.Transfers = append(plan.Transfers, PlannedOp{Path: rel, Action: ActionSkip, Reason: ReasonDuplicate, Entry: e})
			continue
		}
		if doomed.Contains(pathKey(rel)) {
			plan.Transfers = append(plan.Transfers, PlannedOp{Path: rel, Action: ActionDownload, Reason: ReasonMissing, Entry: e})
			continue
		}
		plan.Transfers = append(plan.Transfers, se.planTransfer(rel, e))
	}

	return plan, nil
}

// applyTransfers runs the download stage. Progress advances once per
// operation whatever its outcome.
func (se *SyncEngine) applyTransfers(ctx context.Context, ops []PlannedOp, result *SyncResult) error {
	progress := newProgress(len(ops), se.observer)
	progress.start()

	var mu sync.Mutex
	record := func(op PlannedOp, err error) {
		mu.Lock()
		defer mu.Unlock()

		result.Completed++
		switch {
		case err != nil:
			result.Failed = append(result.Failed, FileError{Path: op.Path, Err: err})
		case op.Action == ActionDownload:
			result.Downloaded = append(result.Downloaded, op.Path)
		default:
			result.Skipped = append(result.Skipped, op.Path)
		}
	}

	g := &errgroup.Group{}
	g.SetLimit(se.workers)

	for _, op := range ops {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := se.transfer(ctx, op)
			record(op, err)
			progress.advance()
			return nil
		})
	}
	g.Wait()

	return ctx.Err()
}

func (se *SyncEngine) transfer(ctx context.Context, op PlannedOp) error {
	if op.Action != ActionDownload {
		se.logger.Debug("sync", "op", op.Action, "path", op.Path, "reason", op.Reason)
		return nil
	}

	dest, err := se.workspace.AbsPath(op.Path)
	if err != nil {
		return err
	}

	se.observer.log("Downloading "+op.Path, ColorDefault)
	err = se.fetcher.DownloadVerified(ctx, op.Entry.URL, dest, op.Entry.Hash,
		fetch.WithStatus(func(s string) { se.logger.Debug("download", "status", s) }))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		se.logger.Error("sync", "op", ActionDownload, "path", op.Path, "reason", op.Reason, "error", err)
		se.observer.log(fmt.Sprintf("Failed to download %s: %v", op.Path, err), ColorError)
		return err
	}

	se.logger.Info("sync", "op", ActionDownload, "path", op.Path, "reason", op.Reason)
	se.observer.log("Updated "+op.Path, ColorSuccess)
	return nil
}
