// SPDX-License-Identifier: Apache-2.0

// Package server runs the HTTP transport: startup, signal handling, and
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Server is the lifecycle contract of the transport layer.
//
// Implementations block in [Server.RunServer] until shutdown is requested
// and release resources in [Server.Shutdown].
type Server interface {
	// RunServer starts serving requests and blocks until the server stops.
	RunServer()

	// Shutdown gracefully stops the server and frees associated resources.
	Shutdown()
}

type server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer builds the HTTP server around the given router.
func NewServer(router http.Handler, cfg config.Server, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if cfg.HTTPAddress == "" {
		return nil, errNoServerAddress
	}

	handler := router
	if cfg.RequestTimeout > 0 {
		handler = http.TimeoutHandler(router, cfg.RequestTimeout, http.StatusText(http.StatusServiceUnavailable))
	}

	return &server{
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *server) RunServer() {
	if err := s.run(); err != nil {
		s.logger.Info().Msgf("Error running server: %v \n", err)
	}
}

func (s *server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Err(err).Msg("HTTP server shutdown failed")
	}
}

func (s *server) run() error {
	idleConnectionsClosed := make(chan struct{})
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	// listen for stop signals
	go func() {
		<-ctx.Done()

		s.Shutdown()

		close(idleConnectionsClosed)
	}()

	s.logger.Info().Str("address", s.httpServer.Addr).Msg("Launching HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-idleConnectionsClosed
	s.logger.Info().Msg("server Shutdown gracefully")

	return nil
}
