// Package selfupdate checks for a newer updater release and replaces the
// running executable with it.
package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/flier268/Minecraft-updater/internal/utils"
	"github.com/flier268/Minecraft-updater/internal/version"
)

const DefaultReleaseURL = "https://api.github.com/repos/flier268/Minecraft_updater/releases/latest"

var ErrNoAsset = errors.New("no release asset for this platform")

// Release is the part of a GitHub release payload the updater uses.
type Release struct {
	TagName    string  `json:"tag_name"`
	Name       string  `json:"name"`
	Body       string  `json:"body"`
	HTMLURL    string  `json:"html_url"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	// Digest is "sha256:<hex>" on releases published after GitHub started
	// recording asset digests.
	Digest string `json:"digest"`
}

// SHA256 returns the hex digest of the asset, if published.
func (a Asset) SHA256() string {
	algo, sum, ok := strings.Cut(a.Digest, ":")
	if !ok || !strings.EqualFold(algo, "sha256") {
		return ""
	}
	return strings.ToLower(sum)
}

// UpdateInfo is the outcome of a release check.
type UpdateInfo struct {
	Available   bool
	Version     string
	Notes       string
	ReleaseURL  string
	AssetName   string
	DownloadURL string
	SHA256      string
	// Reason is set when a newer release exists but is not offered.
	Reason string
}

// Preferences are the user's self update settings.
type Preferences struct {
	DisableSelfUpdate bool
	SkippedVersion    string
}

// AssetNameForPlatform returns the token release asset names carry for a
// platform, such as "win-x64".
func AssetNameForPlatform(goos, goarch string) string {
	arch := "x64"
	if goarch == "arm64" {
		arch = "arm64"
	}

	switch goos {
	case "windows":
		return "win-" + arch
	case "darwin":
		return "osx-" + arch
	default:
		return "linux-" + arch
	}
}

// Decide compares rel against the running version.
func (rel *Release) Decide(current, platform string, prefs Preferences) *UpdateInfo {
	info := &UpdateInfo{}
	if rel.Draft || rel.Prerelease || strings.TrimSpace(rel.TagName) == "" {
		return info
	}

	latest := strings.TrimPrefix(strings.TrimSpace(rel.TagName), "v")
	if !version.IsNewer(latest, current) {
		return info
	}

	info.Version = latest
	info.Notes = rel.Body
	info.ReleaseURL = rel.HTMLURL

	if skipped := strings.TrimSpace(prefs.SkippedVersion); skipped != "" {
		if c, err := version.Compare(latest, skipped); err == nil && c == 0 {
			info.Reason = "skipped by user"
			return info
		}
	}

	info.Available = true
	for _, a := range rel.Assets {
		if strings.Contains(a.Name, platform) {
			info.AssetName = a.Name
			info.DownloadURL = a.BrowserDownloadURL
			info.SHA256 = a.SHA256()
			break
		}
	}
	return info
}

// JSONFetcher is satisfied by *fetch.Client.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, url string, v any) error
}

type Checker struct {
	fetcher        JSONFetcher
	releaseURL     string
	currentVersion string
	platform       string
	prefs          Preferences
	logger         *slog.Logger
}

type CheckerOption func(*Checker)

func WithReleaseURL(u string) CheckerOption {
	return func(c *Checker) {
		if u != "" {
			c.releaseURL = u
		}
	}
}

func WithCurrentVersion(v string) CheckerOption {
	return func(c *Checker) {
		c.currentVersion = v
	}
}

func WithPlatform(goos, goarch string) CheckerOption {
	return func(c *Checker) {
		c.platform = AssetNameForPlatform(goos, goarch)
	}
}

func WithPreferences(p Preferences) CheckerOption {
	return func(c *Checker) {
		c.prefs = p
	}
}

func WithCheckerLogger(l *slog.Logger) CheckerOption {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewChecker(fetcher JSONFetcher, opts ...CheckerOption) *Checker {
	c := &Checker{
		fetcher:        fetcher,
		releaseURL:     DefaultReleaseURL,
		currentVersion: version.Version,
		platform:       AssetNameForPlatform(runtime.GOOS, runtime.GOARCH),
		logger:         utils.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check queries the latest release. A disabled self update never touches the
// network.
func (c *Checker) Check(ctx context.Context) (*UpdateInfo, error) {
	if c.prefs.DisableSelfUpdate {
		c.logger.Debug("self update disabled")
		return &UpdateInfo{Reason: "disabled"}, nil
	}

	var rel Release
	if err := c.fetcher.FetchJSON(ctx, c.releaseURL, &rel); err != nil {
		return nil, fmt.Errorf("selfupdate: check: %w", err)
	}

	info := rel.Decide(c.currentVersion, c.platform, c.prefs)
	c.logger.Info("self update check", "current", c.currentVersion, "latest", strings.TrimPrefix(rel.TagName, "v"), "available", info.Available, "asset", info.AssetName)
	return info, nil
}
