package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modelkombat/config"
	"modelkombat/internal/logging"
)

// Version information
var (
	version string
	commit  string
	date    string
)

// SetVersionInfo sets the version information
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// cli carries the state shared by every subcommand of one invocation
type cli struct {
	settingsPath string
	logLevel     string

	settings *config.Settings
	logger   *zap.Logger
}

// newRootCmd builds the command tree. A fresh tree per invocation keeps flag
// values from leaking between runs.
func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "modelkombat",
		Short: "Model configuration and refinement tool for OpenRouter",
		Long: `Manage the OpenRouter API key, model catalog and refinement defaults
used by Model Kombat, run refinement rounds and rate their responses.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.Version = version
	root.SetVersionTemplate(`modelkombat {{.Version}}
Commit: ` + commit + `
Date: ` + date + `
`)

	root.PersistentFlags().StringVarP(&c.settingsPath, "config", "c", "", "settings file (default: modelkombat.yaml in . or the data dir)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newKeyCmd(c),
		newLoginCmd(c),
		newLogoutCmd(c),
		newModelsCmd(c),
		newDefaultsCmd(c),
		newRoundsCmd(c),
		newRefineCmd(c),
		newRatingsCmd(c),
		newStatusCmd(c),
		newClearCmd(c),
		newServeCmd(c),
		newTUICmd(c),
	)
	return root
}

func (c *cli) setup() error {
	// a .env in the working directory may carry MODELKOMBAT_* values
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	settings, err := config.LoadSettings(c.settingsPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		settings.Logging.Level = c.logLevel
	}

	logger, err := logging.NewLogger(settings.Logging.Level, settings.Logging.Format)
	if err != nil {
		return err
	}
	c.settings = settings
	c.logger = logger
	return nil
}

// Execute executes the root command
func Execute() error {
	return newRootCmd().Execute()
}
