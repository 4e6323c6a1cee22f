package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/flier268/Minecraft-updater/internal/client/config"
	"github.com/flier268/Minecraft-updater/internal/client/selfupdate"
	"github.com/flier268/Minecraft-updater/internal/utils"
	"github.com/flier268/Minecraft-updater/internal/version"
)

// session is the state shared by every command once the config is loaded.
type session struct {
	store   *config.Store
	cfg     *config.Config
	logFile *os.File
}

const cleanupWait = 10 * time.Second

var (
	app      = &session{}
	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:     "Minecraft_updater",
	Short:   "Keeps a Minecraft installation in sync with a published pack",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.logFile != nil {
			app.logFile.Close()
		}
	},
	RunE: runSync,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default Minecraft_updater.json beside the executable)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().Int32(selfupdate.CleanupPIDFlag, 0, "pid of the updater that relaunched this one")
	rootCmd.PersistentFlags().MarkHidden(selfupdate.CleanupPIDFlag)
	addSyncFlags(rootCmd)
}

func newConsoleHandler(w io.Writer, fd uintptr) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      logLevel,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(fd),
	})
}

// newFileHandler writes through a LogInterceptor, which stamps each line
// itself.
func newFileHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(utils.NewLogInterceptor(w), &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
}

// setupLogging installs the default logger: console always, plus
// Minecraft_updater.log beside the executable when LogFile is enabled.
func setupLogging(cfg *config.Config) error {
	handlers := []slog.Handler{newConsoleHandler(os.Stderr, os.Stderr.Fd())}

	if cfg.LogFile {
		logPath := filepath.Join(config.ExecutableDir(), config.LogFileName)
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		app.logFile = file
		handlers = append(handlers, newFileHandler(file))
	}

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(handlers...)))
	return nil
}

// fileLogger is the logger used while the progress view owns the terminal.
func fileLogger() *slog.Logger {
	if app.logFile == nil {
		return utils.DiscardLogger()
	}
	return slog.New(newFileHandler(app.logFile))
}

func loadConfig(cmd *cobra.Command) error {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logLevel.Set(slog.LevelDebug)
	}

	baseDir := config.ExecutableDir()
	if err := config.LoadDotEnv(baseDir); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	path, err := config.EnsureConfigFile(resolveConfigPath(cmd), baseDir)
	if err != nil {
		slog.Warn("legacy config migration failed", "error", err)
	}

	store, err := config.Open(path)
	if err != nil {
		return err
	}
	bindFlags(cmd, store)

	cfg, err := store.Config()
	if err != nil {
		return fmt.Errorf("config '%s': %w", path, err)
	}
	if root, _ := cmd.Flags().GetString("root"); root != "" && cmd.Flags().Changed("root") {
		if cfg.SyncRoot, err = utils.ResolvePath(root); err != nil {
			return err
		}
	}

	app.store = store
	app.cfg = cfg
	if err := setupLogging(cfg); err != nil {
		return err
	}

	if pid, _ := cmd.Flags().GetInt32(selfupdate.CleanupPIDFlag); pid > 0 {
		cleanupAfterRelaunch(cmd, cfg, pid)
	}
	return nil
}

// cleanupAfterRelaunch removes what the previous updater staged before it
// relaunched this process.
func cleanupAfterRelaunch(cmd *cobra.Command, cfg *config.Config, pid int32) {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	if err := selfupdate.Cleanup(cmd.Context(), exe, cfg.SelfUpdateCompanions, pid, cleanupWait); err != nil {
		slog.Warn("self update cleanup", "error", err)
	}
}

// bindFlags lets command line flags override config keys.
func bindFlags(cmd *cobra.Command, store *config.Store) {
	v := store.Viper()
	bind := func(flag, key string) {
		if f := cmd.Flags().Lookup(flag); f != nil {
			v.BindPFlag(config.Section+"."+key, f)
		}
	}
	bind("url", config.KeyManifestURL)
	bind("workers", config.KeyDownloadWorkers)
	bind("auto-close", config.KeyAutoClose)
	bind("no-self-update", config.KeyDisableSelfUpdate)
	bind("base-url", config.KeyPackMakerBaseURL)
}

func main() {
	slog.SetDefault(slog.New(newConsoleHandler(os.Stderr, os.Stderr.Fd())))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
