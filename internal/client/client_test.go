package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/flier268/Minecraft-updater/internal/client/config"
	"github.com/flier268/Minecraft-updater/internal/client/selfupdate"
	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

type skipRecorder struct {
	versions []string
}

func (s *skipRecorder) SkipVersion(v string) error {
	s.versions = append(s.versions, v)
	return nil
}

func newPackServer(t *testing.T, release string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/pack.sc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "MinVersion=0.0.1\n#mods/old||||\nmods/jei_2.jar||%s||%s/files/jei_2.jar\n", sum("jei v2"), srv.URL)
	})
	mux.HandleFunc("/files/jei_2.jar", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jei v2"))
	})
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(release))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientStartSyncs(t *testing.T) {
	srv := newPackServer(t, "{}")
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mods"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mods", "old_1.jar"), []byte("old"), 0o644))

	cfg := &config.Config{
		ManifestURL:       srv.URL + "/pack.sc",
		SyncRoot:          root,
		DisableSelfUpdate: true,
	}

	var messages []string
	c, err := New(cfg,
		WithExecutable(filepath.Join(t.TempDir(), "updater"), nil),
		WithObserver(observerFunc(func(msg string) { messages = append(messages, msg) })),
	)
	require.NoError(t, err)

	report, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Update)
	require.NotNil(t, report.Sync)
	assert.Equal(t, []string{"mods/jei_2.jar"}, report.Sync.Downloaded)
	assert.Equal(t, []string{"mods/old_1.jar"}, report.Sync.Deleted)
	assert.NotEmpty(t, messages)

	data, err := os.ReadFile(filepath.Join(root, "mods", "jei_2.jar"))
	require.NoError(t, err)
	assert.Equal(t, "jei v2", string(data))
	assert.NoFileExists(t, filepath.Join(root, "mods", "old_1.jar"))
}

func TestClientStartRequiresManifestURL(t *testing.T) {
	c, err := New(&config.Config{SyncRoot: t.TempDir(), DisableSelfUpdate: true})
	require.NoError(t, err)

	_, err = c.Start(context.Background())
	assert.ErrorIs(t, err, config.ErrNoManifestURL)
}

func TestClientStartOffersUpdate(t *testing.T) {
	srv := newPackServer(t, `{"tag_name": "v99.0.0", "assets": [{"name": "u-linux-x64.zip", "browser_download_url": "https://example.com/u.zip"}]}`)

	cfg := &config.Config{
		ManifestURL: srv.URL + "/pack.sc",
		SyncRoot:    t.TempDir(),
	}

	var offered *selfupdate.UpdateInfo
	skipper := &skipRecorder{}
	c, err := New(cfg,
		WithExecutable(filepath.Join(t.TempDir(), "updater"), nil),
		WithReleaseURL(srv.URL+"/release"),
		WithUpdatePrompt(func(ctx context.Context, info *selfupdate.UpdateInfo) UpdateDecision {
			offered = info
			return UpdateSkip
		}, skipper),
	)
	require.NoError(t, err)

	report, err := c.Start(context.Background())
	require.NoError(t, err)

	require.NotNil(t, offered)
	assert.Equal(t, "99.0.0", offered.Version)
	assert.Equal(t, []string{"99.0.0"}, skipper.versions)
	assert.Same(t, offered, report.Update)
	assert.Len(t, report.Sync.Downloaded, 1)
}

func TestClientStartSurvivesFailedUpdateCheck(t *testing.T) {
	srv := newPackServer(t, "not json")

	c, err := New(&config.Config{ManifestURL: srv.URL + "/pack.sc", SyncRoot: t.TempDir()},
		WithReleaseURL(srv.URL+"/missing"),
	)
	require.NoError(t, err)

	report, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Update)
	assert.Len(t, report.Sync.Downloaded, 1)
}

func TestClientStartCleansUpPreviousUpdate(t *testing.T) {
	srv := newPackServer(t, "{}")
	dir := t.TempDir()
	exe := filepath.Join(dir, "updater")
	require.NoError(t, os.WriteFile(exe, []byte("new"), 0o755))
	require.NoError(t, os.WriteFile(selfupdate.TempPath(exe), []byte("old"), 0o755))

	c, err := New(&config.Config{ManifestURL: srv.URL + "/pack.sc", SyncRoot: t.TempDir(), DisableSelfUpdate: true},
		WithExecutable(exe, nil),
	)
	require.NoError(t, err)

	_, err = c.Start(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, selfupdate.TempPath(exe))
	assert.FileExists(t, exe)
}

func TestClientKeepsManifestCredentialsOffReleaseHosts(t *testing.T) {
	const token = "manifest-host-secret"

	var mu sync.Mutex
	seen := map[string]string{}
	record := func(r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		seen[r.URL.Path] = r.Header.Get("Authorization")
	}

	mux := http.NewServeMux()
	var srv *httptest.Server
	requireAuth := func(w http.ResponseWriter, r *http.Request) bool {
		record(r)
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return false
		}
		return true
	}
	mux.HandleFunc("/pack.sc", func(w http.ResponseWriter, r *http.Request) {
		if requireAuth(w, r) {
			fmt.Fprintf(w, "mods/jei_2.jar||%s||%s/files/jei_2.jar\n", sum("jei v2"), srv.URL)
		}
	})
	mux.HandleFunc("/files/jei_2.jar", func(w http.ResponseWriter, r *http.Request) {
		if requireAuth(w, r) {
			w.Write([]byte("jei v2"))
		}
	})
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.Header.Get("Authorization") != "" {
			http.Error(w, `{"message": "Bad credentials"}`, http.StatusUnauthorized)
			return
		}
		var assets string
		for i, p := range []string{"linux-x64", "linux-arm64", "win-x64", "win-arm64", "osx-x64", "osx-arm64"} {
			if i > 0 {
				assets += ","
			}
			assets += fmt.Sprintf(`{"name": "u-%s.zip", "browser_download_url": "%s/assets/u.zip"}`, p, srv.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"tag_name": "v99.0.0", "assets": [%s]}`, assets)
	})
	mux.HandleFunc("/assets/u.zip", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		http.NotFound(w, r)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	exe := filepath.Join(t.TempDir(), "updater")
	require.NoError(t, os.WriteFile(exe, []byte("current"), 0o755))

	cfg := &config.Config{
		ManifestURL: srv.URL + "/pack.sc",
		SyncRoot:    t.TempDir(),
		Auth:        fetch.AuthOptions{Mode: fetch.AuthBearerToken, BearerToken: token},
	}

	var hookCalled bool
	c, err := New(cfg,
		WithExecutable(exe, nil),
		WithReleaseURL(srv.URL+"/release"),
		WithUpdatePrompt(func(ctx context.Context, info *selfupdate.UpdateInfo) UpdateDecision {
			return UpdateNow
		}, nil),
		WithBeforeInstall(func() { hookCalled = true }),
	)
	require.NoError(t, err)

	report, err := c.Start(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Update)
	assert.True(t, report.Update.Available)
	assert.True(t, hookCalled)
	assert.Len(t, report.Sync.Downloaded, 1)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, seen, "/release")
	assert.Empty(t, seen["/release"])
	require.Contains(t, seen, "/assets/u.zip")
	assert.Empty(t, seen["/assets/u.zip"])
	assert.Equal(t, "Bearer "+token, seen["/pack.sc"])

	// the failed install was rolled back
	data, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Equal(t, "current", string(data))
}
