// Package server implements the data service HTTP API: the ETag-aware /data
// snapshot endpoint, read-only collection routes and operational endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/data-service/pkg/cache"
	"github.com/Sternrassler/data-service/pkg/logging"
	"github.com/Sternrassler/data-service/pkg/snapshot"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address (e.g., ":3000")
	Addr string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxBodyBytes caps the size of a PUT /data body
	MaxBodyBytes int64
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":3000",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
	}
}

// Server serves the data service API.
type Server struct {
	config    Config
	store     cache.Store
	snapshots *snapshot.Manager
	handler   http.Handler
	logger    zerolog.Logger
}

// New creates a server reading and writing the snapshot through snapshots.
// store is only used for readiness checks.
func New(cfg Config, store cache.Store, snapshots *snapshot.Manager) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot manager is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{
		config:    cfg,
		store:     store,
		snapshots: snapshots,
		logger:    logging.NewLogger("server"),
	}
	s.handler = s.instrument(s.routes())

	return s, nil
}

// Handler returns the root HTTP handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting data service")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down data service")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
