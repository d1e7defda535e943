package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"modelkombat/config"
	"modelkombat/config/models"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/rounds"
)

func newDefaultsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Set the default refiner, judge and round count",
	}
	cmd.AddCommand(
		newDefaultModelCmd(c, "refiner", (*config.State).SetDefaultRefiner),
		newDefaultModelCmd(c, "judge", (*config.State).SetDefaultJudge),
		newDefaultRoundsCmd(c),
	)
	return cmd
}

func newDefaultModelCmd(c *cli, role string, set func(*config.State, context.Context, string) error) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   role + " [model-id]",
		Short: "Set the default " + role + " model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelID := ""
			switch {
			case len(args) == 1:
				modelID = args[0]
			case !unset:
				return apperrors.Validation("a model id is required, or --unset to clear the default %s", role)
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				return set(a.state, ctx, modelID)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "clear the default "+role)
	return cmd
}

func newDefaultRoundsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rounds <n>",
		Short: fmt.Sprintf("Set the default refinement round count (%d-%d)", models.MinRefinementRounds, models.MaxRefinementRounds),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return apperrors.Validation("rounds must be a number, got %q", args[0])
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				return a.state.SetDefaultRounds(ctx, n)
			})
		},
	}
}

func newRoundsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rounds [n]",
		Short: "Show which model each refinement round uses",
		Long: `Show the round-robin assignment of enabled models to rounds. Without n the
default round count is used. With no enabled models every round uses automatic selection.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				cfg := a.state.Config()
				n := cfg.DefaultRefinementRounds
				if len(args) == 1 {
					var err error
					if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
						return apperrors.Validation("rounds must be a positive number, got %q", args[0])
					}
				}

				out := cmd.OutOrStdout()
				for i := 0; i < n; i++ {
					model := a.state.SelectModel(i)
					suffix := ""
					if model == rounds.AutoModel {
						suffix = " (automatic selection)"
					}
					fmt.Fprintf(out, "round %2d  %s%s\n", i+1, model, suffix)
				}
				return nil
			})
		},
	}
}
