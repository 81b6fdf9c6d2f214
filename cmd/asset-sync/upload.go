package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	"github.com/alexjbarnes/asset-sync/internal/config"
	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

const (
	formatItems   = "items"
	formatSummary = "summary"
	formatJSON    = "json"
)

func validateFormat(format string) error {
	switch format {
	case formatItems, formatSummary, formatJSON:
		return nil
	}

	return fmt.Errorf("%w: --format must be items, summary or json, got %q", errs.ErrConfig, format)
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	tf := &targetFlags{needPattern: true, needManifest: true}

	var (
		dryRun bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload new and changed files and rewrite the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target, err := tf.resolve(cmd, ctx.targetsFile(cfg))
			if err != nil {
				return err
			}

			opts, err := uploadOptions(target, dryRun)
			if err != nil {
				return err
			}

			syncer, closeSyncer, err := ctx.syncer(cmd, cfg, target, !dryRun)
			if err != nil {
				return err
			}
			defer closeSyncer()

			result, err := syncer.UploadChanged(cmd.Context(), opts)
			if err != nil {
				return err
			}

			return printUploadResult(cmd, result, format)
		},
	}

	tf.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and show manifest changes without uploading")
	cmd.Flags().StringVar(&format, "format", formatItems, "Output format: items, summary or json")

	return cmd
}

func uploadOptions(target config.Target, dryRun bool) (assetsync.UploadOptions, error) {
	fn, err := stableIDFunc(target)
	if err != nil {
		return assetsync.UploadOptions{}, err
	}

	return assetsync.UploadOptions{
		Target:       target.Name,
		Pattern:      target.Pattern,
		ManifestPath: target.Manifest,
		StableID:     fn,
		DryRun:       dryRun,
	}, nil
}

type uploadItemJSON struct {
	Path     string           `json:"path"`
	StableID string           `json:"stableId"`
	Action   assetsync.Action `json:"action"`
	RemoteID string           `json:"remoteId,omitempty"`
}

type uploadJSON struct {
	DryRun       bool              `json:"dryRun"`
	Items        []uploadItemJSON  `json:"items"`
	Summary      assetsync.Summary `json:"summary"`
	ManifestDiff string            `json:"manifestDiff,omitempty"`
}

func printUploadResult(cmd *cobra.Command, result *assetsync.UploadResult, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case formatJSON:
		items := make([]uploadItemJSON, 0, len(result.Items))
		for _, item := range result.Items {
			items = append(items, uploadItemJSON{
				Path:     item.Path,
				StableID: item.StableID,
				Action:   item.Action,
				RemoteID: item.RemoteID,
			})
		}

		return writeJSON(cmd, uploadJSON{
			DryRun:       result.DryRun,
			Items:        items,
			Summary:      result.Summary(),
			ManifestDiff: result.ManifestDiff,
		})

	case formatSummary:
		printSummary(out, result)

	default:
		printItems(out, result)
	}

	if result.DryRun && result.ManifestDiff != "" {
		fmt.Fprintf(out, "\nManifest changes:\n%s", result.ManifestDiff)
	}

	return nil
}

func printItems(out io.Writer, result *assetsync.UploadResult) {
	if len(result.Items) == 0 {
		fmt.Fprintln(out, "No files matched.")
		return
	}

	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, []string{item.Path, item.StableID, string(item.Action), item.RemoteID})
	}

	fmt.Fprintln(out, renderTable([]string{"Path", "Stable ID", "Action", "Remote ID"}, rows, nil))
}

func printSummary(out io.Writer, result *assetsync.UploadResult) {
	s := result.Summary()

	verb := "Uploaded"
	if result.DryRun {
		verb = "Would upload"
	}

	fmt.Fprintf(out, "%s (%d):\n", verb, len(s.Uploaded))
	writeIndented(out, s.Uploaded)
	fmt.Fprintf(out, "Skipped (%d):\n", len(s.Skipped))
	writeIndented(out, s.Skipped)
}

func writeIndented(out io.Writer, lines []string) {
	if len(lines) == 0 {
		return
	}

	fmt.Fprintln(out, "  "+strings.Join(lines, "\n  "))
}
