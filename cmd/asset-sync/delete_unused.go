package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/assetsync"
)

func newDeleteUnusedCommand(ctx *commandContext) *cobra.Command {
	tf := &targetFlags{needManifest: true}

	var (
		dryRun   bool
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "delete-unused",
		Short: "Delete remote items the manifest no longer references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target, err := tf.resolve(cmd, ctx.targetsFile(cfg))
			if err != nil {
				return err
			}

			syncer, closeSyncer, err := ctx.syncer(cmd, cfg, target, !dryRun)
			if err != nil {
				return err
			}
			defer closeSyncer()

			result, err := syncer.DeleteUnused(cmd.Context(), assetsync.DeleteOptions{
				Target:       target.Name,
				ManifestPath: target.Manifest,
				DryRun:       dryRun,
			})
			if err != nil {
				return err
			}

			if jsonMode {
				return writeJSON(cmd, result)
			}

			printUnused(cmd, result, dryRun)

			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List unused remote items without deleting them")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")

	return cmd
}

func printUnused(cmd *cobra.Command, result *assetsync.UnusedResult, dryRun bool) {
	out := cmd.OutOrStdout()

	verb := "Deleted"
	if dryRun {
		verb = "Would delete"
	}

	fmt.Fprintf(out, "%s %d unused item(s); %d file(s) still referenced.\n", verb, len(result.Deleted), len(result.Used))

	if len(result.Deleted) == 0 {
		return
	}

	rows := make([][]string, 0, len(result.Deleted))
	for _, id := range result.Deleted {
		rows = append(rows, []string{id})
	}

	fmt.Fprintln(out, renderTable([]string{"Remote ID"}, rows, nil))
}
