package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modelkombat/config"
	"modelkombat/config/models"
	"modelkombat/internal/notify"
	"modelkombat/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configuration and ratings HTTP API",
		Long: `Serve the HTTP API. With the local backend every request acts as the local
user. With the account backend requests authenticate with a bearer token
from 'modelkombat login <user> --token'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.settings.Server.Addr
			}
			return c.runWith(cmd, false, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if c.settings.Backend == config.BackendAccount && c.settings.Server.JWTSecret == "" {
					a.logger.Warn("server.jwt_secret is not set, every request is anonymous")
				}
				return newServer(c.settings, a).Run(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

// newServer builds the HTTP API with one State per user over the app's backend
func newServer(settings *config.Settings, a *app) *server.Server {
	sink := notify.NewLogSink(a.logger)
	pool := server.NewPool(func(userID string) *config.State {
		return a.newState(config.StaticIdentity(userID), sink)
	})

	opts := server.Options{
		JWTSecret: settings.Server.JWTSecret,
		Ratings:   a.ratings,
		Logger:    a.logger.With(zap.String("component", "http")),
	}
	if settings.Backend == config.BackendLocal {
		opts.LocalUser = models.LocalUserID
	}
	if settings.Server.MetricsEnabled {
		opts.Metrics = a.metrics
	}
	return server.New(pool, opts)
}
