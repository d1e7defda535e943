package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"modelkombat/internal/utils"
)

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current model configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				cfg := a.state.Config()
				out := cmd.OutOrStdout()

				fmt.Fprintln(out, "Current configuration:")
				fmt.Fprintf(out, "  User: %s (%s backend)\n", a.state.UserID(), c.settings.Backend)
				if credential := a.state.Credential(); credential != "" {
					fmt.Fprintf(out, "  API key: %s\n", utils.MaskCredential(credential))
				} else {
					fmt.Fprintln(out, "  API key: not set")
				}
				fmt.Fprintf(out, "  Enabled models: %d\n", len(cfg.EnabledModelIDs))
				fmt.Fprintf(out, "  Default refiner: %s\n", orNone(cfg.DefaultRefinerID))
				fmt.Fprintf(out, "  Default judge: %s\n", orNone(cfg.DefaultJudgeID))
				fmt.Fprintf(out, "  Default rounds: %d\n", cfg.DefaultRefinementRounds)
				if cfg.LastCatalogSyncTime != nil {
					fmt.Fprintf(out, "  Last catalog sync: %s\n", cfg.LastCatalogSyncTime.Local().Format(time.RFC3339))
				} else {
					fmt.Fprintln(out, "  Last catalog sync: never")
				}
				if lastErr := a.state.LastError(); lastErr != "" {
					fmt.Fprintf(out, "  Last error: %s\n", lastErr)
				}

				if a.state.Credential() == "" {
					fmt.Fprintln(out, "\n💡 Tip: run 'modelkombat key set' to add an OpenRouter API key")
				}
				return nil
			})
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
