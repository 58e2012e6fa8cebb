// Package app provides the top-level application lifecycle for the pacifica
// bot. It wires dependencies, starts the trading loop and the optional price
// feed, and tears everything down in reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pacificabot/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// the cleanup functions registered during wiring.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks until the context is cancelled or a
// component fails. The trading loop and the websocket price feed run in the
// same errgroup, so a feed failure stops trading rather than letting the bot
// size positions off stale prices.
func (a *App) Run(ctx context.Context) error {
	a.logStartup(ctx)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Bot.Run(ctx)
	})

	if deps.Feed != nil {
		g.Go(func() error {
			defer deps.Feed.Close()
			return deps.Feed.Run(ctx)
		})
	}

	return g.Wait()
}

// logStartup emits the one-line summary plus the full effective configuration
// with secrets redacted.
func (a *App) logStartup(ctx context.Context) {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.String("config", a.cfg.Summary()),
	)
	a.logger.InfoContext(ctx, "effective configuration",
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
