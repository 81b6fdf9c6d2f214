package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/models"
)

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	var jsonMode bool

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show storage used by the skill's images and sounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ctx.client(cfg)
			if err != nil {
				return err
			}

			status, err := client.Quota(cmd.Context())
			if err != nil {
				return err
			}

			if jsonMode {
				return writeJSON(cmd, map[string]models.Quota{
					"images": status.Images,
					"sounds": status.Sounds,
				})
			}

			rows := [][]string{
				quotaRow("images", status.Images),
				quotaRow("sounds", status.Sounds),
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Collection", "Used", "Total", "Free"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")

	return cmd
}

func quotaRow(name string, q models.Quota) []string {
	free := max(q.Total-q.Used, 0)

	return []string{
		name,
		humanize.Bytes(uint64(max(q.Used, 0))),
		humanize.Bytes(uint64(max(q.Total, 0))),
		humanize.Bytes(uint64(free)),
	}
}
