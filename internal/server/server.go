// Package server provides HTTP server lifecycle management with graceful
// shutdown.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// shutdownTimeout bounds the drain of in-flight requests on shutdown.
const shutdownTimeout = 10 * time.Second

// Graceful runs one HTTP server until a signal or context cancellation,
// then drains in-flight requests and closes registered resources in reverse
// order of registration.
type Graceful struct {
	server  *http.Server
	closers []io.Closer
}

// NewGraceful wraps the given server.
func NewGraceful(srv *http.Server) *Graceful {
	return &Graceful{server: srv}
}

// RegisterCloser adds a resource to close after the server has drained.
func (g *Graceful) RegisterCloser(c io.Closer) {
	g.closers = append(g.closers, c)
}

// Run serves until SIGTERM/SIGINT or ctx cancellation, then shuts down.
func (g *Graceful) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: listen failed: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := g.server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server: shutdown failed: %w", err)
	}

	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("server: close failed: %w", err)
		}
	}

	return firstErr
}
