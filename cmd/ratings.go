package cmd

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"modelkombat/internal/apperrors"
	"modelkombat/internal/ratings"
)

func newRatingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "Rate stored responses and show statistics",
	}
	cmd.AddCommand(newRatingsListCmd(c), newRatingsRateCmd(c), newRatingsWinnerCmd(c), newRatingsStatsCmd(c))
	return cmd
}

func newRatingsListCmd(c *cli) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWith(cmd, false, func(ctx context.Context, a *app) error {
				responses, err := a.ratings.List(ctx, project)
				if err != nil {
					return err
				}
				if len(responses) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No responses")
					return nil
				}

				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("ID", "PROJECT", "ROUND", "MODEL", "RATING", "WINNER")
				for _, r := range responses {
					rating := "-"
					if r.Rating != nil {
						rating = strconv.Itoa(*r.Rating)
					}
					winner := ""
					if r.IsWinner {
						winner = "🏆"
					}
					t.Row(r.ID, r.ProjectID, strconv.Itoa(r.Round+1), r.ModelID, rating, winner)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only responses of this project")
	return cmd
}

func newRatingsRateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <response-id> <stars|clear>",
		Short: fmt.Sprintf("Rate a response %d-%d stars, or clear its rating", ratings.MinRating, ratings.MaxRating),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stars *int
			if args[1] != "clear" {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return apperrors.Validation("rating must be a number or 'clear', got %q", args[1])
				}
				stars = &n
			}
			return c.runWith(cmd, false, func(ctx context.Context, a *app) error {
				if err := a.ratings.Rate(ctx, args[0], stars); err != nil {
					return err
				}
				if stars == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared rating of %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Rated %s: %d/%d\n", args[0], *stars, ratings.MaxRating)
				}
				return nil
			})
		},
	}
}

func newRatingsWinnerCmd(c *cli) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "winner <response-id>",
		Short: "Mark a response as the winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWith(cmd, false, func(ctx context.Context, a *app) error {
				if err := a.ratings.SetWinner(ctx, args[0], !unset); err != nil {
					return err
				}
				if unset {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer a winner\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s marked as winner\n", args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "remove the winner flag")
	return cmd
}

func newRatingsStatsCmd(c *cli) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show rating statistics overall and per model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWith(cmd, false, func(ctx context.Context, a *app) error {
				report, err := a.ratings.Stats(ctx, project)
				if err != nil {
					return err
				}

				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("MODEL", "AVG", "RATINGS", "WINS", "RESPONSES", "WIN RATE")
				t.Row(statsRow("all", report.Overall)...)
				modelIDs := make([]string, 0, len(report.ByModel))
				for id := range report.ByModel {
					modelIDs = append(modelIDs, id)
				}
				slices.Sort(modelIDs)
				for _, id := range modelIDs {
					t.Row(statsRow(id, report.ByModel[id])...)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only responses of this project")
	return cmd
}

func statsRow(label string, s ratings.Statistics) []string {
	return []string{
		label,
		fmt.Sprintf("%.2f", s.AverageRating),
		strconv.Itoa(s.TotalRatings),
		strconv.Itoa(s.WinCount),
		strconv.Itoa(s.TotalResponses),
		fmt.Sprintf("%.0f%%", s.WinRate*100),
	}
}
