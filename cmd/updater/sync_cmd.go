package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/flier268/Minecraft-updater/internal/client"
	"github.com/flier268/Minecraft-updater/internal/client/selfupdate"
	"github.com/flier268/Minecraft-updater/internal/client/sync"
)

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the game directory with the configured pack (default command)",
		RunE:  runSync,
	}
	addSyncFlags(syncCmd)
	rootCmd.AddCommand(syncCmd)
}

// addSourceFlags are the flags that pick what is synced where.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("url", "u", "", "manifest url (scUrl)")
	cmd.Flags().StringP("root", "r", "", "directory to sync (default: config file directory)")
	cmd.Flags().IntP("workers", "w", 0, "parallel downloads")
}

func addSyncFlags(cmd *cobra.Command) {
	addSourceFlags(cmd)
	cmd.Flags().Bool("auto-close", false, "exit without waiting for Enter")
	cmd.Flags().Bool("no-self-update", false, "do not check for updater releases")
	cmd.Flags().BoolP("yes", "y", false, "install an available updater release without asking")
	cmd.Flags().Bool("no-tui", false, "plain output even on a terminal")
}

func runSync(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg := app.cfg
	out := cmd.OutOrStdout()

	yes, _ := cmd.Flags().GetBool("yes")
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	cleanupPID, _ := cmd.Flags().GetInt32(selfupdate.CleanupPIDFlag)
	useTUI := !noTUI && isatty.IsTerminal(os.Stdout.Fd())

	exe, err := os.Executable()
	if err != nil {
		slog.Warn("cannot locate executable, self update disabled", "error", err)
		cfg.DisableSelfUpdate = true
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opts := []client.Option{
		client.WithExecutable(exe, os.Args[1:]),
		client.WithCleanupPID(cleanupPID),
		client.WithUpdatePrompt(updatePrompt(cmd.InOrStdin(), out, yes, !useTUI), app.store),
	}

	var view *progressView
	if useTUI {
		program := tea.NewProgram(newSyncModel(), tea.WithContext(ctx), tea.WithOutput(out))
		view = newProgressView(program, textObserver(out))
		opts = append(opts,
			client.WithObserver(view.observer()),
			client.WithLogger(fileLogger()),
			// a self update replaces this process, the terminal must be restored first
			client.WithBeforeInstall(view.stop),
		)
	} else {
		opts = append(opts, client.WithObserver(textObserver(out)), client.WithLogger(slog.Default()))
	}

	c, err := client.New(cfg, opts...)
	if err != nil {
		return err
	}

	if view != nil {
		// closing the view aborts the pass
		view.start(cancel)
	}
	report, err := c.Start(ctx)
	if view != nil {
		view.stop()
	}

	if report != nil {
		printSummary(out, report.Sync)
	}
	if err != nil {
		fmt.Fprintln(out, red.Render("Sync failed: "+err.Error()))
	}

	waitForEnter(cmd.InOrStdin(), out, cfg.AutoClose)
	return err
}

// textObserver prints messages as they come and progress in 10% steps.
func textObserver(w io.Writer) sync.Observer {
	lastStep := -1
	return sync.Observer{
		OnProgress: func(current, total int) {
			if total == 0 {
				return
			}
			step := current * 10 / total
			if step == lastStep {
				return
			}
			lastStep = step
			fmt.Fprintln(w, gray.Render(fmt.Sprintf("progress %d/%d (%d%%)", current, total, current*100/total)))
		},
		OnLog: func(message string, color sync.Color) {
			fmt.Fprintln(w, styleFor(color).Render(message))
		},
	}
}

// updatePrompt asks on the terminal, or answers from --yes when asking is
// not possible.
func updatePrompt(in io.Reader, out io.Writer, yes, interactive bool) client.UpdatePrompt {
	return func(ctx context.Context, info *selfupdate.UpdateInfo) client.UpdateDecision {
		if yes {
			return client.UpdateNow
		}
		if !interactive || !isTerminal(in) {
			slog.Info("updater release available, run self-update to install", "version", info.Version)
			return client.UpdateLater
		}
		return askUpdate(in, out, info)
	}
}

func askUpdate(in io.Reader, out io.Writer, info *selfupdate.UpdateInfo) client.UpdateDecision {
	fmt.Fprintln(out, cyan.Render(fmt.Sprintf("Minecraft_updater %s is available.", info.Version)))
	if notes := strings.TrimSpace(info.Notes); notes != "" {
		fmt.Fprintln(out, gray.Render(notes))
	}
	fmt.Fprint(out, "Install now? [y]es / [N]o / [s]kip this version: ")

	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return client.UpdateNow
	case "s", "skip":
		return client.UpdateSkip
	default:
		return client.UpdateLater
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func waitForEnter(in io.Reader, out io.Writer, autoClose bool) {
	if autoClose || !isTerminal(in) {
		return
	}
	fmt.Fprint(out, gray.Render("Press Enter to exit"))
	bufio.NewReader(in).ReadString('\n')
}

func printSummary(w io.Writer, r *sync.SyncResult) {
	if r == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d  %s %d  %s %d  %s %s\n",
		green.Render("downloaded"), len(r.Downloaded),
		gray.Render("up to date"), len(r.Skipped),
		yellow.Render("deleted"), len(r.Deleted),
		gray.Render("took"), r.Duration.Round(time.Millisecond))

	for _, warn := range r.Warnings {
		fmt.Fprintln(w, yellow.Render("warning: "+warn.Error()))
	}
	for _, rej := range r.Rejected {
		fmt.Fprintln(w, yellow.Render("rejected: "+rej.Error()))
	}
	for _, f := range r.Failed {
		fmt.Fprintln(w, red.Render("failed: "+f.Error()))
	}

	if r.HasErrors() {
		fmt.Fprintln(w, red.Render(fmt.Sprintf("%s of %s entries failed", humanize.Comma(int64(len(r.Failed))), humanize.Comma(int64(r.Total)))))
	} else {
		fmt.Fprintln(w, green.Render("Everything is up to date."))
	}
}
