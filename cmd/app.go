package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modelkombat/config"
	"modelkombat/config/session"
	"modelkombat/config/storage"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/notify"
	"modelkombat/internal/observability"
	"modelkombat/internal/openrouter"
	"modelkombat/internal/ratings"
)

// app is the wired object graph of one command run
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	metrics  *observability.Metrics

	backend  config.Backend
	identity config.Identity
	docs     *storage.DocumentStore
	ratings  *ratings.Store
	state    *config.State
}

// openApp wires the backend chosen by settings. Notifications are printed to
// out and logged. The caller must Close the app.
func openApp(settings *config.Settings, logger *zap.Logger, out io.Writer) (*app, error) {
	docs, err := storage.OpenDocumentStore(settings.DocumentsDir())
	if err != nil {
		return nil, err
	}

	a := &app{
		settings: settings,
		logger:   logger,
		metrics:  observability.NewMetrics(),
		docs:     docs,
		ratings:  ratings.NewStore(docs),
	}

	switch settings.Backend {
	case config.BackendAccount:
		a.backend = config.NewAccountBackend(docs)
		a.identity = session.NewIdentity(settings.DataDir)
	default:
		store, err := storage.NewFileStore(settings.StorePath())
		if err != nil {
			docs.Close()
			return nil, err
		}
		a.backend = config.NewLocalBackend(store)
		a.identity = config.LocalIdentity{}
	}

	a.state = a.newState(a.identity, notify.Multi(notify.NewConsoleSink(out), notify.NewLogSink(logger)))
	return a, nil
}

func (a *app) newClient() *openrouter.Client {
	return openrouter.NewClient(a.settings.API.BaseURL,
		openrouter.WithTimeout(a.settings.API.Timeout),
		openrouter.WithCatalogTTL(a.settings.API.CatalogTTL),
		openrouter.WithLogger(a.logger),
	)
}

func (a *app) newState(identity config.Identity, sink notify.Sink) *config.State {
	return config.NewState(a.backend, identity, a.newClient(),
		config.WithLogger(a.logger),
		config.WithNotifier(sink),
		config.WithMetrics(a.metrics),
		config.WithTimeout(a.settings.API.Timeout),
	)
}

// Close releases the document store
func (a *app) Close() error {
	return a.docs.Close()
}

// run opens the app, loads the current user's config and calls fn
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	return c.runWith(cmd, true, fn)
}

func (c *cli) runWith(cmd *cobra.Command, load bool, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(c.settings, c.logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if load {
		if err := a.state.LoadConfig(ctx); err != nil {
			return explain(err)
		}
	}
	return fn(ctx, a)
}

// explain adds a hint to errors the user can act on
func explain(err error) error {
	if errors.Is(err, apperrors.ErrNotAuthenticated) {
		return fmt.Errorf("%w\n💡 Tip: run 'modelkombat login <user>' first", err)
	}
	return err
}
