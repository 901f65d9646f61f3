// Package server exposes the asset cache, the message hub and the profile
// and settings API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/lance13c/shopassist/internal/config"
	"github.com/lance13c/shopassist/internal/logging"
)

// Server represents the HTTP server lifecycle
type Server struct {
	httpServer *http.Server
}

// New constructs a Server listening on cfg's host and port
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for HTTP traffic and blocks until the server stops
func (s *Server) Start() error {
	logging.Info("Starting HTTP server on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve is Start on an existing listener
func (s *Server) Serve(l net.Listener) error {
	logging.Info("Starting HTTP server on %s", l.Addr())
	err := s.httpServer.Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully terminates all active connections
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
