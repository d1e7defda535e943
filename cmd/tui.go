package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"modelkombat/internal/notify"
	"modelkombat/internal/tui"
)

func newTUICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Aliases: []string{"ui"},
		Short:   "Pick models in an interactive terminal UI",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWith(cmd, false, func(ctx context.Context, a *app) error {
				// console notifications would corrupt the alt screen
				state := a.newState(a.identity, notify.NewLogSink(a.logger))
				return tui.Run(ctx, state)
			})
		},
	}
}

