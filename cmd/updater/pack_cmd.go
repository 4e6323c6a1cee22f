package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flier268/Minecraft-updater/internal/client/config"
	"github.com/flier268/Minecraft-updater/internal/fetch"
	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/pack"
	"github.com/flier268/Minecraft-updater/internal/packmaker"
	"github.com/flier268/Minecraft-updater/internal/utils"
)

var errCheckFailed = errors.New("manifest has problems")

func init() {
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Author and check pack manifests",
	}
	packCmd.AddCommand(newPackMakeCmd(), newPackCheckCmd())
	rootCmd.AddCommand(packCmd)
}

func newPackMakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make [paths...]",
		Short: "Hash files under the pack root into manifest entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			flags := cmd.Flags()

			root, _ := flags.GetString("pack-root")
			listName, _ := flags.GetString("list")
			from, _ := flags.GetString("from")
			output, _ := flags.GetString("output")
			minVersion, _ := flags.GetString("min-version")
			excludes, _ := flags.GetStringSlice("exclude")
			modsGuard, _ := flags.GetBool("mods-guard")
			configGuard, _ := flags.GetBool("config-guard")
			algoName, _ := flags.GetString("algo")

			if root == "" {
				root = app.cfg.SyncRoot
			}
			kind, err := packmaker.ParseListKind(listName)
			if err != nil {
				return err
			}
			algo := app.cfg.HashAlgorithm
			if algoName != "" {
				if algo, err = hashing.ParseAlgorithm(algoName); err != nil {
					return err
				}
			}

			if flags.Changed("base-url") {
				if err := app.store.WriteKeyValue(config.Section, config.KeyPackMakerBaseURL, app.cfg.PackMakerBaseURL); err != nil {
					slog.Warn("failed to save base url", "error", err)
				}
			}

			maker, err := packmaker.New(root, app.cfg.PackMakerBaseURL,
				packmaker.WithAlgorithm(algo),
				packmaker.WithExcludes(excludes...),
				packmaker.WithDeleteGuards(modsGuard, configGuard),
				packmaker.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}

			lists := &packmaker.Lists{}
			if from != "" {
				existing, m, err := packmaker.Load(from)
				if err != nil {
					return err
				}
				lists = existing
				if minVersion == "" {
					minVersion = m.MinimumVersion
				}
			}

			added, skipped, err := maker.Add(args, kind)
			if err != nil {
				return err
			}
			lists.Merge(added)
			for _, s := range skipped {
				slog.Debug("skipped", "path", s)
			}

			return writeOutput(cmd.OutOrStdout(), output, lists.Encode(minVersion))
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.String("pack-root", "", "directory the entry paths are relative to (default: sync root)")
	flags.String("base-url", "", "url prefix of the published files (updatepackMaker_BaseURL)")
	flags.StringP("list", "l", "sync", "list to add to: sync, delete or download-if-missing")
	flags.String("from", "", "existing manifest to extend")
	flags.StringP("output", "o", "", "write the manifest to a file instead of stdout")
	flags.String("min-version", "", "minimum updater version header")
	flags.StringSlice("exclude", nil, "doublestar patterns to leave out")
	flags.Bool("mods-guard", true, "add a delete entry for every synced mod")
	flags.Bool("config-guard", false, "add a delete entry for every synced config file")
	flags.String("algo", "", "hash algorithm: sha256 or md5 (default: HashAlgorithm)")
	return cmd
}

func writeOutput(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := utils.EnsureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func newPackCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file|url>",
		Short: "Report malformed and invalid manifest entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			legacy, _ := cmd.Flags().GetBool("legacy")

			text, err := readManifest(cmd, args[0])
			if err != nil {
				return err
			}

			validator := pack.NewValidator()
			if legacy || app.cfg.AcceptLegacyHash {
				validator = pack.NewLegacyValidator()
			}
			return checkManifest(cmd.OutOrStdout(), text, validator)
		},
	}
	cmd.Flags().Bool("legacy", false, "accept MD5 digests")
	return cmd
}

func readManifest(cmd *cobra.Command, source string) (string, error) {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		f := fetch.New(fetch.WithAuth(app.cfg.Auth), fetch.WithLogger(slog.Default()))
		return f.FetchText(cmd.Context(), source)
	}
	data, err := os.ReadFile(source)
	return string(data), err
}

func checkManifest(w io.Writer, text string, validator *pack.Validator) error {
	m := pack.Decode(text)
	accepted, rejected := validator.Filter(m.Entries)

	for _, warn := range m.Warnings {
		fmt.Fprintln(w, yellow.Render("warning: "+warn.Error()))
	}
	for _, rej := range rejected {
		fmt.Fprintln(w, red.Render("invalid: "+rej.Error()))
	}

	deletions, ifMissing, plain := pack.Partition(accepted)
	fmt.Fprintf(w, "%d sync, %d delete, %d download-if-missing", len(plain), len(deletions), len(ifMissing))
	if m.MinimumVersion != "" {
		fmt.Fprintf(w, ", minimum version %s", m.MinimumVersion)
	}
	fmt.Fprintln(w)

	if len(m.Warnings) > 0 || len(rejected) > 0 {
		return fmt.Errorf("%w: %d warnings, %d invalid entries", errCheckFailed, len(m.Warnings), len(rejected))
	}
	fmt.Fprintln(w, green.Render("ok"))
	return nil
}
