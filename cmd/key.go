package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"modelkombat/internal/tui"
	"modelkombat/internal/utils"
)

func newKeyCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the OpenRouter API key",
	}
	cmd.AddCommand(newKeySetCmd(c), newKeyVerifyCmd(c), newKeyShowCmd(c))
	return cmd
}

func newKeySetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set [key]",
		Short: "Verify and store an API key",
		Long: `Verify an API key against OpenRouter and store it.

Usage 1: interactive (recommended, the key is not kept in shell history)
  modelkombat key set

Usage 2: argument
  modelkombat key set sk-or-v1-...

The stored key is obfuscated, not encrypted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var credential string
			if len(args) == 1 {
				credential = args[0]
			} else {
				var err error
				if credential, err = promptCredential(); err != nil {
					return err
				}
			}

			return c.run(cmd, func(ctx context.Context, a *app) error {
				return a.state.SaveCredential(ctx, strings.TrimSpace(credential))
			})
		},
	}
}

func promptCredential() (string, error) {
	if !tui.IsTerminal() {
		return "", errors.New("interactive input is not available here, pass the key as an argument: modelkombat key set <key>")
	}

	var credential string
	err := huh.NewInput().
		Title("OpenRouter API key").
		Placeholder("sk-or-v1-...").
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("API key cannot be empty")
			}
			return nil
		}).
		Value(&credential).
		Run()
	return credential, err
}

func newKeyVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Test the stored API key against OpenRouter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				return a.state.Verify(ctx)
			})
		},
	}
}

func newKeyShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored API key, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				credential := a.state.Credential()
				if credential == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No API key configured")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), utils.MaskCredential(credential))
				return nil
			})
		},
	}
}
