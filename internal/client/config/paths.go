package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/flier268/Minecraft-updater/internal/utils"
)

const (
	FileName       = "Minecraft_updater.json"
	LegacyFileName = "config.json"
	LogFileName    = "Minecraft_updater.log"
	DotEnvFileName = ".env"

	EnvPrefix     = "MCUPDATER"
	EnvConfigPath = EnvPrefix + "_CONFIG_PATH"
)

// ExecutableDir is the directory of the running binary with symlinks
// resolved, or the working directory when that cannot be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// DetermineConfigPath picks the config file: the --config value, then
// MCUPDATER_CONFIG_PATH, then Minecraft_updater.json. Relative paths are
// resolved against baseDir.
func DetermineConfigPath(flagValue, baseDir string) string {
	path := strings.Trim(strings.TrimSpace(flagValue), `"`)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path == "" {
		path = FileName
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// EnsureConfigFile copies a legacy config.json from baseDir to path when
// path does not exist yet and the legacy file names a manifest url.
func EnsureConfigFile(path, baseDir string) (string, error) {
	if utils.FileExists(path) {
		return path, nil
	}

	legacyPath := filepath.Join(baseDir, LegacyFileName)
	if !utils.FileExists(legacyPath) {
		return path, nil
	}

	legacy := viper.New()
	legacy.SetConfigFile(legacyPath)
	legacy.SetConfigType("json")
	if err := legacy.ReadInConfig(); err != nil {
		return path, err
	}
	if strings.TrimSpace(legacy.GetString(Section+"."+KeyManifestURL)) == "" {
		return path, nil
	}

	if err := utils.CopyFile(legacyPath, path, 0o644); err != nil {
		return path, err
	}
	slog.Info("migrated legacy config", "from", legacyPath, "to", path)
	return path, nil
}

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, DotEnvFileName)
	if !utils.FileExists(path) {
		return nil
	}
	return godotenv.Load(path)
}
