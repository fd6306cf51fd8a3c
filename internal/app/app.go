// Package app wires the Sagittarius server: store selection, handler mux,
// middleware chains, and the HTTP server lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	api "github.com/benjaminjonard/sagittarius/internal/api/http"
	"github.com/benjaminjonard/sagittarius/internal/config"
	"github.com/benjaminjonard/sagittarius/internal/server"
	"github.com/benjaminjonard/sagittarius/internal/store"
)

// App is the assembled server process.
type App struct {
	cfg   *config.Config
	store store.Store
	srv   *server.Graceful
}

// New validates the configuration, opens the store, and builds the HTTP
// stack. An unreachable store is a startup error: the process must not
// begin serving without it.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureStoreDir(); err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Store initialized: driver=%s", cfg.Store.Driver)

	mux := http.NewServeMux()
	authed := api.ChainMiddleware(
		api.RecoveryMiddleware,
		api.RequestIDMiddleware,
		api.AuthMiddleware(cfg.Server.APISecret),
	)
	open := api.ChainMiddleware(
		api.RecoveryMiddleware,
		api.RequestIDMiddleware,
	)
	mux.Handle("/api/stats", authed(api.NewStatsHandler(st)))
	mux.Handle("/health", open(api.HealthHandler{}))

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	graceful := server.NewGraceful(httpServer)
	graceful.RegisterCloser(st)

	return &App{cfg: cfg, store: st, srv: graceful}, nil
}

// Run serves until shutdown.
func (a *App) Run(ctx context.Context) error {
	log.Printf("Sagittarius server listening on %s", a.cfg.Server.Addr)
	return a.srv.Run(ctx)
}

// openStore builds the configured store backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	case "postgres":
		return store.NewPostgresStore(cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("app: unknown store driver: %s", cfg.Store.Driver)
	}
}
