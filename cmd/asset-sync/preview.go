package main

import (
	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/preview"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	tf := &targetFlags{}

	var listen string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve a skill webhook that shows the uploaded assets one by one",
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

			remote, err := ctx.collection(cfg, target.Kind)
			if err != nil {
				return err
			}

			responder, err := preview.LoadResponder(cmd.Context(), remote, target.Manifest)
			if err != nil {
				return err
			}

			addr := listen
			if addr == "" {
				addr = cfg.PreviewListenAddr
			}

			logger := ctx.logger(cmd, cfg)
			mux := preview.NewMux(preview.MuxConfig{Responder: responder, Logger: logger})

			return preview.Serve(cmd.Context(), addr, mux, logger)
		},
	}

	tf.register(cmd)
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default $PREVIEW_LISTEN_ADDR)")

	return cmd
}
