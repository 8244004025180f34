package memory

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cugtyt/agentloop/internal/logger"
)

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

func NewServer(port string, handler *Handler) *Server {
	if port == "" {
		port = "8000"
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      handler.Router(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: logger.Named("memory"),
	}
}

// Start blocks until the server is stopped or fails.
func (s *Server) Start() error {
	s.log.Infow("memory server starting", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown waits for active connections within the deadline of ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("stopping memory server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
