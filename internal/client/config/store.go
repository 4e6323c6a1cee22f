package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/utils"
)

// Store is a section/key view over one config file. Reads fall back to
// MCUPDATER_<SECTION>_<KEY> environment variables.
type Store struct {
	path string
	v    *viper.Viper
}

var _ fetch.KeyValueReader = (*Store)(nil)

// Open reads path. A missing file is not an error; it is created on the
// first write.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", path, err)
		}
	}

	return &Store{path: path, v: v}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Viper exposes the underlying instance so CLI flags can be bound to keys.
func (s *Store) Viper() *viper.Viper {
	return s.v
}

func key(section, k string) string {
	return section + "." + k
}

func (s *Store) ReadKeyValue(section, k string) string {
	return s.v.GetString(key(section, k))
}

// WriteKeyValue sets a key and saves the whole file.
func (s *Store) WriteKeyValue(section, k, value string) error {
	s.v.Set(key(section, k), value)
	if err := utils.EnsureParent(s.path); err != nil {
		return err
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("config write '%s': %w", s.path, err)
	}
	return nil
}

// Config decodes the Minecraft_updater section and validates it.
func (s *Store) Config() (*Config, error) {
	get := func(k string) string {
		return strings.TrimSpace(s.v.GetString(key(Section, k)))
	}

	cfg := &Config{
		Path:                 s.path,
		ManifestURL:          get(KeyManifestURL),
		SyncRoot:             get(KeySyncRoot),
		AutoClose:            s.v.GetBool(key(Section, KeyAutoClose)),
		LogFile:              s.v.GetBool(key(Section, KeyLogFile)),
		DisableSelfUpdate:    s.v.GetBool(key(Section, KeyDisableSelfUpdate)),
		SkippedVersion:       get(KeySkippedVersion),
		PackMakerBaseURL:     get(KeyPackMakerBaseURL),
		Auth:                 fetch.LoadAuthOptions(s, Section),
		HashAlgorithm:        hashing.Algorithm(strings.ToLower(get(KeyHashAlgorithm))),
		AcceptLegacyHash:     s.v.GetBool(key(Section, KeyAcceptLegacyHash)),
		DownloadWorkers:      s.v.GetInt(key(Section, KeyDownloadWorkers)),
		DownloadTimeout:      s.v.GetDuration(key(Section, KeyDownloadTimeout)),
		SelfUpdateCompanions: s.v.GetStringSlice(key(Section, KeySelfUpdateCompanions)),
	}

	if cfg.SyncRoot == "" {
		cfg.SyncRoot = filepath.Dir(s.path)
	} else if !filepath.IsAbs(cfg.SyncRoot) {
		cfg.SyncRoot = filepath.Join(filepath.Dir(s.path), cfg.SyncRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SkipVersion records a release the user does not want to be offered.
func (s *Store) SkipVersion(v string) error {
	return s.WriteKeyValue(Section, KeySkippedVersion, strings.TrimPrefix(strings.TrimSpace(v), "v"))
}

func (s *Store) SetSelfUpdateDisabled(disabled bool) error {
	value := "false"
	if disabled {
		value = "true"
	}
	return s.WriteKeyValue(Section, KeyDisableSelfUpdate, value)
}
