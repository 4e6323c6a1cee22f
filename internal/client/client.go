// Package client runs one updater session: clean up after a previous self
// update, offer a newer updater release, then sync the game directory.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flier268/Minecraft-updater/internal/client/config"
	"github.com/flier268/Minecraft-updater/internal/client/selfupdate"
	"github.com/flier268/Minecraft-updater/internal/client/sync"
	"github.com/flier268/Minecraft-updater/internal/client/workspace"
	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/flier268/Minecraft-updater/internal/pack"
	"github.com/flier268/Minecraft-updater/internal/utils"
)

const cleanupWait = 10 * time.Second

// UpdateDecision is the user's answer to an available release.
type UpdateDecision int

const (
	UpdateLater UpdateDecision = iota
	UpdateNow
	UpdateSkip
)

// UpdatePrompt asks whether to install a release.
type UpdatePrompt func(ctx context.Context, info *selfupdate.UpdateInfo) UpdateDecision

// VersionSkipper persists a skipped release, see config.Store.
type VersionSkipper interface {
	SkipVersion(v string) error
}

// Report is the outcome of Start.
type Report struct {
	Update *selfupdate.UpdateInfo
	Sync   *sync.SyncResult
}

type Client struct {
	config        *config.Config
	workspace     *workspace.Workspace
	fetcher       *fetch.Client
	release       *fetch.Client
	engine        *sync.SyncEngine
	checker       *selfupdate.Checker
	exePath       string
	args          []string
	cleanupPID    int32
	prompt        UpdatePrompt
	skipper       VersionSkipper
	observer      sync.Observer
	logger        *slog.Logger
	releaseURL    string
	beforeInstall func()
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithObserver(o sync.Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithExecutable sets the binary replaced by a self update and the
// arguments forwarded when it is relaunched.
func WithExecutable(path string, args []string) Option {
	return func(c *Client) {
		c.exePath = path
		c.args = args
	}
}

// WithCleanupPID is the pid of the process that relaunched this one.
func WithCleanupPID(pid int32) Option {
	return func(c *Client) {
		c.cleanupPID = pid
	}
}

func WithUpdatePrompt(p UpdatePrompt, skipper VersionSkipper) Option {
	return func(c *Client) {
		c.prompt = p
		c.skipper = skipper
	}
}

func WithReleaseURL(u string) Option {
	return func(c *Client) {
		c.releaseURL = u
	}
}

// WithBeforeInstall runs fn right before a confirmed self update starts,
// e.g. to hand the terminal back before the process is replaced.
func WithBeforeInstall(fn func()) Option {
	return func(c *Client) {
		c.beforeInstall = fn
	}
}

func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ws, err := workspace.NewWorkspace(cfg.SyncRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	c := &Client{
		config:    cfg,
		workspace: ws,
		logger:    utils.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exePath == "" {
		if exe, err := os.Executable(); err == nil {
			c.exePath = exe
		}
	}

	c.fetcher = fetch.New(
		fetch.WithAuth(cfg.Auth),
		fetch.WithTimeout(cfg.DownloadTimeout),
		fetch.WithAlgorithm(cfg.HashAlgorithm),
		fetch.WithLogger(c.logger),
	)

	// release metadata and assets live on other hosts and never see the
	// manifest host's credentials
	c.release = fetch.New(
		fetch.WithTimeout(cfg.DownloadTimeout),
		fetch.WithLogger(c.logger),
	)

	validator := pack.NewValidator()
	if cfg.AcceptLegacyHash {
		validator = pack.NewLegacyValidator()
	}

	c.engine = sync.NewSyncEngine(ws, c.fetcher,
		sync.WithLogger(c.logger),
		sync.WithObserver(c.observer),
		sync.WithValidator(validator),
		sync.WithDefaultAlgorithm(cfg.HashAlgorithm),
		sync.WithWorkers(cfg.DownloadWorkers),
	)

	c.checker = selfupdate.NewChecker(c.release,
		selfupdate.WithReleaseURL(c.releaseURL),
		selfupdate.WithPreferences(selfupdate.Preferences{
			DisableSelfUpdate: cfg.DisableSelfUpdate,
			SkippedVersion:    cfg.SkippedVersion,
		}),
		selfupdate.WithCheckerLogger(c.logger),
	)

	return c, nil
}

func (c *Client) Engine() *sync.SyncEngine {
	return c.engine
}

func (c *Client) Fetcher() *fetch.Client {
	return c.fetcher
}

// Start runs the session. A failed cleanup or update check is logged and
// the sync still runs; a successful self update does not return.
func (c *Client) Start(ctx context.Context) (*Report, error) {
	c.logger.Info("updater start", "root", c.workspace.Root, "manifest", c.fetcher.Redact(c.config.ManifestURL))
	report := &Report{}

	c.cleanup(ctx)

	if info := c.checkUpdate(ctx); info != nil {
		report.Update = info
		c.maybeInstall(ctx, info)
	}

	if err := c.config.RequireManifestURL(); err != nil {
		return report, err
	}

	result, err := c.engine.RunSync(ctx, c.config.ManifestURL)
	report.Sync = result
	if err != nil {
		return report, err
	}

	c.logger.Info("updater done",
		"downloaded", len(result.Downloaded),
		"skipped", len(result.Skipped),
		"deleted", len(result.Deleted),
		"failed", len(result.Failed),
		"duration", result.Duration)
	return report, nil
}

func (c *Client) cleanup(ctx context.Context) {
	if c.exePath == "" {
		return
	}
	err := selfupdate.Cleanup(ctx, c.exePath, c.config.SelfUpdateCompanions, c.cleanupPID, cleanupWait)
	if err != nil {
		c.logger.Warn("self update cleanup", "error", err)
	}
}

func (c *Client) checkUpdate(ctx context.Context) *selfupdate.UpdateInfo {
	if c.config.DisableSelfUpdate {
		return nil
	}

	c.observer.Logf(sync.ColorInfo, "Checking for updater updates...")
	info, err := c.checker.Check(ctx)
	if err != nil {
		c.logger.Warn("self update check failed", "error", err)
		c.observer.Logf(sync.ColorWarning, "Update check failed: %v", err)
		return nil
	}
	if !info.Available {
		return info
	}

	c.observer.Logf(sync.ColorSuccess, "Updater %s is available", info.Version)
	return info
}

func (c *Client) maybeInstall(ctx context.Context, info *selfupdate.UpdateInfo) {
	if !info.Available || c.prompt == nil {
		return
	}

	switch c.prompt(ctx, info) {
	case UpdateSkip:
		if c.skipper != nil {
			if err := c.skipper.SkipVersion(info.Version); err != nil {
				c.logger.Warn("failed to save skipped version", "version", info.Version, "error", err)
			}
		}
	case UpdateNow:
		if c.beforeInstall != nil {
			c.beforeInstall()
		}
		tx := selfupdate.NewTransaction(c.exePath, c.release,
			selfupdate.WithCompanions(c.config.SelfUpdateCompanions...),
			selfupdate.WithLogger(c.logger),
		)
		err := tx.Run(ctx, info, c.args)
		if err == nil {
			return
		}

		var replaceErr *selfupdate.SelfReplaceError
		if errors.As(err, &replaceErr) && replaceErr.RollbackErr != nil {
			c.logger.Error("self update rollback failed", "error", replaceErr.RollbackErr)
		}
		c.logger.Error("self update failed", "error", err)
		c.observer.Logf(sync.ColorError, "Self update failed: %v", err)
	}
}
