package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"modelkombat/internal/tui"
)

func newClearCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset the configuration to defaults",
		Long:  "Remove the stored API key, enabled models and defaults of the current user.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !tui.IsTerminal() {
					return errors.New("refusing to clear without confirmation, pass --yes")
				}
				confirmed := false
				err := huh.NewConfirm().
					Title("Clear the stored configuration?").
					Description("The API key, enabled models and defaults are reset.").
					Value(&confirmed).
					Run()
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			return c.runWith(cmd, false, func(ctx context.Context, a *app) error {
				return a.state.ClearConfig(ctx)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
