package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flier268/Minecraft-updater/internal/hashing"
)

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Minecraft_updater.json")
	dummyConfig := `
{
	"Minecraft_updater": {
		"scUrl": "https://pack.example.com/pack.sc",
		"AutoClose_AfterFinishd": true,
		"DownloadWorkers": 4,
		"HashAlgorithm": "MD5",
		"SyncRoot": "instance"
	}
}`
	require.NoError(t, os.WriteFile(path, []byte(dummyConfig), 0o644))
	t.Setenv("MCUPDATER_CONFIG_PATH", path)

	require.NoError(t, loadConfig(rootCmd))
	t.Cleanup(func() { app.store, app.cfg = nil, nil })

	cfg := app.cfg
	require.NotNil(t, cfg)
	assert.Equal(t, "https://pack.example.com/pack.sc", cfg.ManifestURL)
	assert.True(t, cfg.AutoClose)
	assert.Equal(t, 4, cfg.DownloadWorkers)
	assert.Equal(t, hashing.MD5, cfg.HashAlgorithm)
	assert.Equal(t, filepath.Join(dir, "instance"), cfg.SyncRoot)
	assert.Equal(t, path, app.store.Path())
}

func TestLoadConfigEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Minecraft_updater.json")
	t.Setenv("MCUPDATER_CONFIG_PATH", path)
	t.Setenv("MCUPDATER_MINECRAFT_UPDATER_SCURL", "https://env.example.com/pack.sc")
	t.Setenv("MCUPDATER_MINECRAFT_UPDATER_DISABLESELFUPDATE", "true")

	require.NoError(t, loadConfig(rootCmd))
	t.Cleanup(func() { app.store, app.cfg = nil, nil })

	assert.Equal(t, "https://env.example.com/pack.sc", app.cfg.ManifestURL)
	assert.True(t, app.cfg.DisableSelfUpdate)
	assert.Equal(t, filepath.Dir(path), app.cfg.SyncRoot)
}
