package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineConfigPath(t *testing.T) {
	base := t.TempDir()
	custom := filepath.Join(t.TempDir(), "custom.json")

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{name: "default", want: filepath.Join(base, FileName)},
		{name: "absolute flag", flag: custom, want: custom},
		{name: "quoted flag", flag: `"` + custom + `"`, want: custom},
		{name: "relative flag", flag: "custom.json", want: filepath.Join(base, "custom.json")},
		{name: "env", env: custom, want: custom},
		{name: "flag beats env", flag: "flag.json", env: custom, want: filepath.Join(base, "flag.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigPath, tt.env)
			assert.Equal(t, tt.want, DetermineConfigPath(tt.flag, base))
		})
	}
}

func TestEnsureConfigFileMigratesLegacy(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, base, LegacyFileName, `{"Minecraft_updater": {"scUrl": "https://example.com/updatePackList.sc"}}`)
	target := filepath.Join(base, FileName)

	got, err := EnsureConfigFile(target, base)
	require.NoError(t, err)
	assert.Equal(t, target, got)
	assert.FileExists(t, target)

	store, err := Open(target)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/updatePackList.sc", store.ReadKeyValue(Section, KeyManifestURL))
}

func TestEnsureConfigFileSkipsLegacyWithoutManifestURL(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, base, LegacyFileName, `{"Minecraft_updater": {"AutoClose_AfterFinishd": false}}`)
	target := filepath.Join(base, FileName)

	_, err := EnsureConfigFile(target, base)
	require.NoError(t, err)
	assert.NoFileExists(t, target)
}

func TestEnsureConfigFileKeepsExisting(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, base, LegacyFileName, `{"Minecraft_updater": {"scUrl": "https://old.example.com/p.sc"}}`)
	target := writeConfig(t, base, FileName, `{"Minecraft_updater": {"scUrl": "https://new.example.com/p.sc"}}`)

	_, err := EnsureConfigFile(target, base)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "new.example.com")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(dir))

	t.Setenv("MCUPDATER_TEST_DOTENV", "")
	os.Unsetenv("MCUPDATER_TEST_DOTENV")
	writeConfig(t, dir, DotEnvFileName, "MCUPDATER_TEST_DOTENV=loaded\n")

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "loaded", os.Getenv("MCUPDATER_TEST_DOTENV"))
}
