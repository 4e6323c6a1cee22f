package packmaker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/pack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func hashOf(t *testing.T, body string) string {
	t.Helper()
	sum, err := hashing.HashReader(strings.NewReader(body), hashing.SHA256)
	require.NoError(t, err)
	return sum
}

func TestDeleteName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mods/jei_1.20-15.2.jar", "mods/jei"},
		{"mods/journeymap-1.20.1.jar", "mods/journeymap"},
		{"mods/optifine+hd.jar", "mods/optifine"},
		{"mods/plain.jar", "mods/plain.jar"},
		{"config/my-mod/settings.cfg", "config/my-mod/settings.cfg"},
		{"mods/-odd.jar", "mods/-odd.jar"},
		{"options.txt", "options.txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeleteName(tt.in), tt.in)
	}
}

func TestParseListKind(t *testing.T) {
	k, err := ParseListKind("delete")
	require.NoError(t, err)
	assert.Equal(t, ListDelete, k)

	k, err = ParseListKind("")
	require.NoError(t, err)
	assert.Equal(t, ListSync, k)

	_, err = ParseListKind("bogus")
	assert.Error(t, err)
}

func TestURLFor(t *testing.T) {
	m, err := New(t.TempDir(), "https://cdn.example.com/pack")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/pack/mods/jei_1.jar", m.URLFor("mods/jei_1.jar"))
	assert.Equal(t, "https://cdn.example.com/pack/resourcepacks/My%20Pack.zip", m.URLFor("resourcepacks/My Pack.zip"))

	m.BaseURL = "https://cdn.example.com/pack/"
	assert.Equal(t, "https://cdn.example.com/pack/a.txt", m.URLFor("a.txt"))
}

func TestAddSyncWithModGuard(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"mods/jei_1.20.jar":      "jei",
		"config/jei-client.toml": "cfg",
		"options.txt":            "opts",
	})

	m, err := New(root, "https://cdn.example.com/")
	require.NoError(t, err)

	lists, skipped, err := m.Add([]string{root}, ListSync)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	require.Len(t, lists.Sync, 3)
	assert.Equal(t, pack.Entry{Path: "config/jei-client.toml", Hash: hashOf(t, "cfg"), URL: "https://cdn.example.com/config/jei-client.toml"}, lists.Sync[0])
	assert.Equal(t, "mods/jei_1.20.jar", lists.Sync[1].Path)
	assert.Equal(t, "options.txt", lists.Sync[2].Path)

	// only mods get a guard by default
	require.Len(t, lists.Delete, 1)
	assert.Equal(t, pack.Entry{Path: "mods/jei", Hash: hashOf(t, "jei"), Delete: true}, lists.Delete[0])
	assert.Empty(t, lists.DownloadIfMissing)
}

func TestAddConfigGuard(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"config/jei-client.toml": "cfg", "mods/a_1.jar": "a"})

	m, err := New(root, "", WithDeleteGuards(false, true))
	require.NoError(t, err)

	lists, _, err := m.Add([]string{filepath.Join(root, "config"), filepath.Join(root, "mods")}, ListSync)
	require.NoError(t, err)
	require.Len(t, lists.Delete, 1)
	assert.Equal(t, "config/jei", lists.Delete[0].Path)
	assert.Equal(t, DefaultBaseURL+"config/jei-client.toml", lists.Sync[0].URL)
}

func TestAddDeleteAndIfMissingLists(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"mods/old_2.jar": "old", "servers.dat": "srv"})

	m, err := New(root, "https://cdn.example.com/")
	require.NoError(t, err)

	del, _, err := m.Add([]string{filepath.Join(root, "mods", "old_2.jar")}, ListDelete)
	require.NoError(t, err)
	require.Len(t, del.Delete, 1)
	assert.Equal(t, "#mods/old||"+hashOf(t, "old")+"||", pack.EncodeLine(del.Delete[0]))

	miss, _, err := m.Add([]string{filepath.Join(root, "servers.dat")}, ListDownloadIfMissing)
	require.NoError(t, err)
	require.Len(t, miss.DownloadIfMissing, 1)
	assert.Equal(t, ":servers.dat||"+hashOf(t, "srv")+"||https://cdn.example.com/servers.dat", pack.EncodeLine(miss.DownloadIfMissing[0]))
}

func TestAddSkipsOutsideRootAndIgnored(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFiles(t, root, map[string]string{
		"mods/a.jar":            "a",
		"mods/a.jar.tmp.123":    "partial",
		"logs/latest.log":       "log",
		"screenshots/x.png":     "png",
		"saves/world/level.dat": "lvl",
		".packignore":           "screenshots/\n",
	})
	writeFiles(t, outside, map[string]string{"evil.jar": "x"})

	m, err := New(root, "", WithExcludes("saves/**"))
	require.NoError(t, err)

	lists, skipped, err := m.Add([]string{root, filepath.Join(outside, "evil.jar")}, ListSync)
	require.NoError(t, err)

	require.Len(t, lists.Sync, 1)
	assert.Equal(t, "mods/a.jar", lists.Sync[0].Path)
	assert.Contains(t, skipped, filepath.Join(outside, "evil.jar"))
	assert.Contains(t, skipped, "screenshots/x.png")
	assert.Contains(t, skipped, "saves/world/level.dat")
	assert.Contains(t, skipped, "logs/latest.log")
}

func TestAddLegacyAlgorithm(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a"})

	m, err := New(root, "", WithAlgorithm(hashing.MD5))
	require.NoError(t, err)

	lists, _, err := m.Add([]string{root}, ListSync)
	require.NoError(t, err)
	require.Len(t, lists.Sync, 1)
	assert.Len(t, lists.Sync[0].Hash, hashing.MD5.HexLen())
}

func TestNewRejectsEmptyRoot(t *testing.T) {
	_, err := New(" ", "")
	assert.ErrorIs(t, err, ErrEmptyRoot)
}

func TestSplitAndEncode(t *testing.T) {
	text := "MinVersion=2.0.0\n" +
		"#mods/old||abc||\n" +
		"mods/a.jar||" + strings.Repeat("a", 64) + "||https://x.example.com/a.jar\n" +
		":options.txt||" + strings.Repeat("b", 64) + "||https://x.example.com/options.txt\n"

	m := pack.Decode(text)
	lists := Split(m)
	require.Len(t, lists.Sync, 1)
	require.Len(t, lists.Delete, 1)
	require.Len(t, lists.DownloadIfMissing, 1)
	assert.Equal(t, 3, lists.Len())

	want := "MinVersion=2.0.0\n" +
		"mods/a.jar||" + strings.Repeat("a", 64) + "||https://x.example.com/a.jar\n" +
		"#mods/old||abc||\n" +
		":options.txt||" + strings.Repeat("b", 64) + "||https://x.example.com/options.txt\n"
	assert.Equal(t, want, lists.Encode(m.MinimumVersion))

	lists.Clear(ListDelete)
	assert.Equal(t, 2, lists.Len())
}

func TestLoadAndMerge(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pack.txt")
	require.NoError(t, os.WriteFile(file, []byte("#mods/old||||\n"), 0o644))

	lists, m, err := Load(file)
	require.NoError(t, err)
	assert.Empty(t, m.MinimumVersion)

	lists.Merge(&Lists{Sync: []pack.Entry{{Path: "a", URL: "https://x.example.com/a"}}})
	assert.Equal(t, "a||||https://x.example.com/a\n#mods/old||||\n", lists.Encode(""))

	_, _, err = Load(filepath.Join(dir, "absent.txt"))
	assert.Error(t, err)
}
