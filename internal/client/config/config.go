// Package config loads the updater settings: a JSON file whose
// "Minecraft_updater" section holds every key, overridable from the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/flier268/Minecraft-updater/internal/hashing"
)

const Section = "Minecraft_updater"

const (
	KeyManifestURL          = "scUrl"
	KeyAutoClose            = "AutoClose_AfterFinishd"
	KeyLogFile              = "LogFile"
	KeyDisableSelfUpdate    = "DisableSelfUpdate"
	KeySkippedVersion       = "SkippedVersion"
	KeyPackMakerBaseURL     = "updatepackMaker_BaseURL"
	KeyHashAlgorithm        = "HashAlgorithm"
	KeyAcceptLegacyHash     = "AcceptLegacyHash"
	KeyDownloadWorkers      = "DownloadWorkers"
	KeyDownloadTimeout      = "DownloadTimeout"
	KeySelfUpdateCompanions = "SelfUpdateCompanions"
	KeySyncRoot             = "SyncRoot"
)

const (
	DefaultDownloadWorkers = 1
	DefaultDownloadTimeout = 10 * time.Minute
	maxDownloadWorkers     = 16
)

var ErrNoManifestURL = errors.New("no manifest url configured (scUrl)")

type Config struct {
	// Path is the file the settings were read from.
	Path string

	ManifestURL string
	// SyncRoot is the directory kept in sync. It defaults to the config
	// file's directory, which is the executable's directory unless the
	// config lives elsewhere.
	SyncRoot string

	AutoClose         bool
	LogFile           bool
	DisableSelfUpdate bool
	SkippedVersion    string
	PackMakerBaseURL  string

	Auth fetch.AuthOptions

	HashAlgorithm    hashing.Algorithm
	AcceptLegacyHash bool
	DownloadWorkers  int
	DownloadTimeout  time.Duration

	SelfUpdateCompanions []string
}

// Validate normalizes the config and reports settings that cannot work.
// An empty manifest url is allowed here; commands that sync check it with
// RequireManifestURL.
func (c *Config) Validate() error {
	c.ManifestURL = strings.TrimSpace(c.ManifestURL)
	if c.ManifestURL != "" {
		if err := validateURL(c.ManifestURL); err != nil {
			return fmt.Errorf("invalid manifest url: %w", err)
		}
	}

	if c.PackMakerBaseURL != "" {
		if err := validateURL(c.PackMakerBaseURL); err != nil {
			return fmt.Errorf("invalid pack maker base url: %w", err)
		}
	}

	algo, err := hashing.ParseAlgorithm(string(c.HashAlgorithm))
	if err != nil {
		return err
	}
	c.HashAlgorithm = algo

	switch {
	case c.DownloadWorkers <= 0:
		c.DownloadWorkers = DefaultDownloadWorkers
	case c.DownloadWorkers > maxDownloadWorkers:
		c.DownloadWorkers = maxDownloadWorkers
	}

	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}

	c.Auth = c.Auth.Normalize()
	return nil
}

func (c *Config) RequireManifestURL() error {
	if strings.TrimSpace(c.ManifestURL) == "" {
		return ErrNoManifestURL
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}
