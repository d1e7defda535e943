package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modelkombat/internal/apperrors"
	"modelkombat/internal/refine"
)

func newRefineCmd(c *cli) *cobra.Command {
	var (
		project   string
		n         int
		maxTokens int
	)

	cmd := &cobra.Command{
		Use:   "refine <prompt>",
		Short: "Run refinement rounds over the enabled models",
		Long: `Ask the model of round 1 to answer the prompt, then have each following
round improve the previous answer. Models rotate round-robin over the enabled
models. Every response is stored unrated for 'modelkombat ratings'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				credential := a.state.Credential()
				if credential == "" {
					return fmt.Errorf("%w: no API key configured, run 'modelkombat key set'", apperrors.ErrCredentialInvalid)
				}

				cfg := a.state.Config()
				if !cmd.Flags().Changed("rounds") {
					n = cfg.DefaultRefinementRounds
				}

				runner := refine.NewRunner(
					refine.NewClient(c.settings.API.BaseURL, credential),
					a.ratings,
					refine.WithLogger(a.logger),
					refine.WithMetrics(a.metrics),
					refine.WithMaxTokens(maxTokens),
				)
				result, err := runner.Run(ctx, refine.Request{
					ProjectID:       project,
					Prompt:          strings.Join(args, " "),
					Rounds:          n,
					EnabledModelIDs: cfg.EnabledModelIDs,
				})

				out := cmd.OutOrStdout()
				for _, r := range result.Responses {
					fmt.Fprintf(out, "── round %d · %s · %s\n%s\n\n", r.Round+1, r.ModelID, r.ID, r.Content)
				}
				if result.ProjectID != "" {
					fmt.Fprintf(out, "Project: %s\n", result.ProjectID)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id to group responses under (default: new id)")
	cmd.Flags().IntVarP(&n, "rounds", "n", 0, "number of rounds (default: the configured default)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "completion token limit per round, 0 for the service default")
	return cmd
}
