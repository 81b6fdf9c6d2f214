package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/assetsync"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	tf := &targetFlags{needPattern: true, needManifest: true}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Upload changed files whenever the watched directory changes",
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

			opts, err := uploadOptions(target, false)
			if err != nil {
				return err
			}

			syncer, closeSyncer, err := ctx.syncer(cmd, cfg, target, true)
			if err != nil {
				return err
			}
			defer closeSyncer()

			logger := ctx.logger(cmd, cfg)
			out := cmd.OutOrStdout()

			sync := func(runCtx context.Context) error {
				result, err := syncer.UploadChanged(runCtx, opts)
				if err != nil {
					return err
				}

				s := result.Summary()
				fmt.Fprintf(out, "synced %s: %d uploaded, %d skipped\n", target.Manifest, len(s.Uploaded), len(s.Skipped))

				return nil
			}

			if err := sync(cmd.Context()); err != nil {
				return err
			}

			ignore := []string{target.Manifest}
			if path, err := ctx.journalPath(cfg); err == nil {
				ignore = append(ignore, path)
			}

			w := assetsync.NewWatcher(target.Pattern, sync, logger, ignore...)

			err = w.Watch(cmd.Context())
			if errors.Is(err, context.Canceled) {
				logger.Info("watch stopped", slog.String("pattern", target.Pattern))
				return nil
			}

			return err
		},
	}

	tf.register(cmd)

	return cmd
}
