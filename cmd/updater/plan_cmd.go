package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flier268/Minecraft-updater/internal/client"
	"github.com/flier268/Minecraft-updater/internal/client/sync"
	"github.com/flier268/Minecraft-updater/internal/pack"
)

func init() {
	rootCmd.AddCommand(newPlanCmd())
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a sync would change without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			file, _ := cmd.Flags().GetString("file")
			all, _ := cmd.Flags().GetBool("all")

			c, err := client.New(app.cfg, client.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			var m *pack.Manifest
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				m = pack.Decode(string(data))
			} else {
				if err := app.cfg.RequireManifestURL(); err != nil {
					return err
				}
				if m, err = c.Engine().FetchManifest(cmd.Context(), app.cfg.ManifestURL); err != nil {
					return err
				}
			}

			plan, err := c.Engine().Plan(cmd.Context(), m)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plan, all)
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().StringP("file", "f", "", "plan against a local manifest file")
	cmd.Flags().BoolP("all", "a", false, "also list files that are up to date")
	return cmd
}

func printPlan(w io.Writer, p *sync.Plan, all bool) {
	if p.MinimumVersion != "" {
		fmt.Fprintln(w, gray.Render("minimum updater version "+p.MinimumVersion))
	}

	for _, op := range p.Deletions {
		switch op.Action {
		case sync.ActionDelete:
			fmt.Fprintf(w, "%s %s %s\n", red.Render("delete  "), op.Path, gray.Render("("+op.Entry.Path+")"))
		case sync.ActionKeep:
			if all {
				fmt.Fprintf(w, "%s %s %s\n", gray.Render("keep    "), op.Path, gray.Render("("+string(op.Reason)+")"))
			}
		}
	}

	var skipped int
	for _, op := range p.Transfers {
		if op.Action == sync.ActionDownload {
			fmt.Fprintf(w, "%s %s %s\n", green.Render("download"), op.Path, gray.Render("("+string(op.Reason)+")"))
			continue
		}
		skipped++
		if all {
			fmt.Fprintf(w, "%s %s %s\n", gray.Render("skip    "), op.Path, gray.Render("("+string(op.Reason)+")"))
		}
	}

	for _, warn := range p.Warnings {
		fmt.Fprintln(w, yellow.Render("warning: "+warn.Error()))
	}
	for _, rej := range p.Rejected {
		fmt.Fprintln(w, yellow.Render("rejected: "+rej.Error()))
	}

	fmt.Fprintf(w, "%d to download, %d up to date, %d to delete\n", len(p.Downloads()), skipped, countDeletes(p))
}

func countDeletes(p *sync.Plan) int {
	n := 0
	for _, op := range p.Deletions {
		if op.Action == sync.ActionDelete {
			n++
		}
	}
	return n
}
