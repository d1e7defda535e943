package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"modelkombat/config"
	"modelkombat/config/session"
	"modelkombat/internal/server"
)

func newLoginCmd(c *cli) *cobra.Command {
	var printToken bool

	cmd := &cobra.Command{
		Use:   "login <user>",
		Short: "Log in as a user for the account backend",
		Long: `Record the current user on this machine. The account backend scopes the
model configuration to this user. With --token and server.jwt_secret set,
a bearer token for the HTTP API is printed as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			if err := session.Login(c.settings.DataDir, userID); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in as %s\n", userID)
			if c.settings.Backend != config.BackendAccount {
				fmt.Fprintln(out, "💡 Tip: set backend: account to store the configuration per user")
			}

			if !printToken {
				return nil
			}
			if c.settings.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is not set, cannot issue a token")
			}
			token, err := server.IssueToken(c.settings.Server.JWTSecret, userID, server.DefaultTokenLifetime)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printToken, "token", false, "print a bearer token for the HTTP API")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the login marker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.Logout(c.settings.DataDir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
