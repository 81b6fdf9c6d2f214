package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	errs "github.com/alexjbarnes/asset-sync/internal/errors"
	"github.com/alexjbarnes/asset-sync/internal/journal"
)

const defaultHistoryLimit = 20

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		target   string
		limit    int
		keep     int
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded upload and delete-unused runs",
		Long: "Without --target, shows the latest run of every target. Targets " +
			"without a name are recorded under their manifest path.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			j, err := ctx.openJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			if cmd.Flags().Changed("keep") {
				if target == "" {
					return fmt.Errorf("%w: --keep requires --target", errs.ErrConfig)
				}

				removed, err := j.Prune(target, keep)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s) from %s.\n", removed, target)

				return nil
			}

			runs, err := historyRuns(j, target, limit)
			if err != nil {
				return err
			}

			if jsonMode {
				return writeJSON(cmd, runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))

			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target name or manifest path")
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Maximum runs to show for a target (0 for all)")
	cmd.Flags().IntVar(&keep, "keep", 0, "Prune the target's history down to the newest N runs")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")

	return cmd
}

// historyRuns returns the target's runs, or the latest run per target when
// target is empty.
func historyRuns(j *journal.Journal, target string, limit int) ([]assetsync.Run, error) {
	if target != "" {
		return j.Runs(target, limit)
	}

	targets, err := j.Targets()
	if err != nil {
		return nil, err
	}

	runs := make([]assetsync.Run, 0, len(targets))
	for _, t := range targets {
		latest, err := j.Runs(t, 1)
		if err != nil {
			return nil, err
		}

		runs = append(runs, latest...)
	}

	return runs, nil
}

func renderRuns(runs []assetsync.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.Target,
			string(run.Kind),
			humanize.Time(run.At),
			strconv.Itoa(len(run.Uploaded)),
			strconv.Itoa(len(run.Skipped)),
			strconv.Itoa(len(run.Deleted)),
		})
	}

	return renderTable(
		[]string{"Target", "Kind", "When", "Uploaded", "Skipped", "Deleted"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}
