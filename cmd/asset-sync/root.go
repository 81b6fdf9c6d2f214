package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var targetsFlag string

	ctx := newCommandContext(&targetsFlag)

	rootCmd := &cobra.Command{
		Use:           "asset-sync",
		Short:         "Keep a skill's images and sounds in step with local files",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&targetsFlag, "targets", "", "Targets file (default $ASSET_SYNC_TARGETS)")

	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newDeleteUnusedCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newQuotaCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}
