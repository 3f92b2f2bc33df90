// Package app wires together the registry, the chat server loops, the
// optional history store, and the operational HTTP surface.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/core"
	"github.com/vovakirdan/ircwire/internal/server"
	"github.com/vovakirdan/ircwire/internal/store"
	"github.com/vovakirdan/ircwire/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/ircwire/internal/transport/http"
)

// App owns the composed server and its resources.
type App struct {
	cfg     config.Config
	srv     *server.Server
	httpSrv *stdhttp.Server
	store   store.Store
	log     *zerolog.Logger
}

// New constructs the application with the provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	reg := core.NewRegistry()

	var st store.Store
	if cfg.DatabasePath != "" {
		sqliteStore, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st = sqliteStore
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("history store initialized")
	}

	a := &App{
		cfg:   cfg,
		srv:   server.New(cfg, reg, st, logger),
		store: st,
		log:   logger,
	}
	if cfg.HTTPAddr != "" {
		a.httpSrv = transporthttp.NewServer(reg, cfg, logger)
	}
	return a, nil
}

// Run starts the chat server (and the HTTP surface when configured) and
// blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if err := a.srv.Start(); err != nil {
		a.cleanup()
		return err
	}

	httpErr := make(chan error, 1)
	if a.httpSrv != nil {
		go func() {
			if err := a.httpSrv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				httpErr <- err
				return
			}
			httpErr <- nil
		}()
	}

	select {
	case err := <-httpErr:
		a.srv.Stop()
		a.cleanup()
		return err
	case <-ctx.Done():
		if a.httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down http surface")
			if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn().Err(err).Msg("http shutdown failed")
			}
		}
		a.srv.Stop()
		a.cleanup()
		return nil
	}
}

func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
