package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"modelkombat/config"
	"modelkombat/config/models"
	"modelkombat/internal/catalog"
)

func newModelsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Sync, list and enable catalog models",
	}
	cmd.AddCommand(newModelsSyncCmd(c), newModelsListCmd(c), newModelsToggleCmd(c))
	return cmd
}

func newModelsSyncCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the model catalog from OpenRouter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				_, err := a.state.SyncCatalog(ctx, force)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the catalog cache")
	return cmd
}

func newModelsListCmd(c *cli) *cobra.Command {
	var (
		flagship bool
		enabled  bool
		provider string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog models",
		Long: `List the catalog with enabled (✓) and flagship (★) markers.
With --enabled the stored enabled models are listed without contacting OpenRouter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				cfg := a.state.Config()

				var entries []models.CatalogEntry
				if enabled {
					for _, id := range cfg.EnabledModelIDs {
						entries = append(entries, models.CatalogEntry{ID: id})
					}
				} else {
					var err error
					if entries, err = a.state.SyncCatalog(ctx, false); err != nil {
						return err
					}
				}

				rows := catalog.Filter(catalog.Annotate(entries, cfg.EnabledModelIDs), func(e catalog.Annotated) bool {
					return (!flagship || e.Flagship) && (provider == "" || e.Provider == provider)
				})
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No models")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCatalog(rows, cfg))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&flagship, "flagship", false, "only flagship models")
	cmd.Flags().BoolVar(&enabled, "enabled", false, "only enabled models")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "only models of this provider")
	return cmd
}

func renderCatalog(rows []catalog.Annotated, cfg *models.Config) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "MODEL", "NAME", "PROVIDER", "ROLE")
	for _, e := range rows {
		mark := " "
		if e.Enabled {
			mark = "✓"
		}
		if e.Flagship {
			mark += "★"
		}
		name := ""
		if e.DisplayName != "" && e.DisplayName != e.ID {
			name = e.DisplayName
		}
		t.Row(mark, e.ID, name, e.Provider, roleOf(e.ID, cfg))
	}
	return t.Render()
}

func roleOf(modelID string, cfg *models.Config) string {
	switch {
	case modelID == cfg.DefaultRefinerID && modelID == cfg.DefaultJudgeID:
		return "refiner, judge"
	case modelID == cfg.DefaultRefinerID:
		return "refiner"
	case modelID == cfg.DefaultJudgeID:
		return "judge"
	}
	return ""
}

func newModelsToggleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <model-id>...",
		Short: "Enable disabled models and disable enabled ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				for _, id := range args {
					if err := a.state.ToggleModel(ctx, id); err != nil {
						return err
					}
				}
				printEnabled(cmd, a.state)
				return nil
			})
		},
	}
}

func printEnabled(cmd *cobra.Command, state *config.State) {
	ids := state.Config().EnabledModelIDs
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No models enabled, rounds use automatic selection")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Enabled models (%d):\n", len(ids))
	for i, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s\n", i+1, id)
	}
}
