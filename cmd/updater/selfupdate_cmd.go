package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flier268/Minecraft-updater/internal/client/selfupdate"
	"github.com/flier268/Minecraft-updater/internal/fetch"
)

func init() {
	rootCmd.AddCommand(newSelfUpdateCmd())
}

func newSelfUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Check for and install a newer Minecraft_updater release",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			flags := cmd.Flags()
			checkOnly, _ := flags.GetBool("check")
			skip, _ := flags.GetBool("skip")
			releaseURL, _ := flags.GetString("release-url")
			out := cmd.OutOrStdout()

			switch {
			case flags.Changed("disable"):
				return app.store.SetSelfUpdateDisabled(true)
			case flags.Changed("enable"):
				return app.store.SetSelfUpdateDisabled(false)
			}

			fetcher := fetch.New(fetch.WithTimeout(app.cfg.DownloadTimeout), fetch.WithLogger(slog.Default()))
			// an explicit request ignores DisableSelfUpdate
			checker := selfupdate.NewChecker(fetcher,
				selfupdate.WithReleaseURL(releaseURL),
				selfupdate.WithPreferences(selfupdate.Preferences{SkippedVersion: app.cfg.SkippedVersion}),
				selfupdate.WithCheckerLogger(slog.Default()),
			)

			info, err := checker.Check(cmd.Context())
			if err != nil {
				return err
			}
			if !info.Available {
				msg := "Minecraft_updater is up to date"
				if info.Reason != "" {
					msg += " (" + info.Version + " " + info.Reason + ")"
				}
				fmt.Fprintln(out, green.Render(msg))
				return nil
			}

			fmt.Fprintln(out, cyan.Render(fmt.Sprintf("Minecraft_updater %s is available: %s", info.Version, info.ReleaseURL)))
			switch {
			case checkOnly:
				return nil
			case skip:
				return app.store.SkipVersion(info.Version)
			}

			exe, err := os.Executable()
			if err != nil {
				return err
			}
			tx := selfupdate.NewTransaction(exe, fetcher,
				selfupdate.WithCompanions(app.cfg.SelfUpdateCompanions...),
				selfupdate.WithLogger(slog.Default()),
			)
			// the new binary reports its version and cleans up after us
			return tx.Run(cmd.Context(), info, []string{"self-update", "--check"})
		},
	}

	flags := cmd.Flags()
	flags.Bool("check", false, "only report whether a release is available")
	flags.Bool("skip", false, "never offer the latest release again")
	flags.Bool("disable", false, "turn off update checks during sync")
	flags.Bool("enable", false, "turn update checks back on")
	flags.String("release-url", "", "release metadata url")
	flags.MarkHidden("release-url")
	cmd.MarkFlagsMutuallyExclusive("check", "skip", "disable", "enable")
	return cmd
}
