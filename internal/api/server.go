// Package api serves the repoedit HTTP interface.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"repoedit/internal/apply"
	"repoedit/internal/assistant"
	"repoedit/internal/session"
	"repoedit/internal/storage"
	"repoedit/internal/store"
)

// History reads the apply journal.
type History interface {
	List(ctx context.Context, limit int) ([]storage.JournalEntry, error)
	Batch(ctx context.Context, batchID string) ([]storage.JournalEntry, error)
}

// Deps are the collaborators a Server routes requests to. Provider and
// History may be nil; their endpoints then answer 503.
type Deps struct {
	Store        store.Store
	Orchestrator *apply.Orchestrator
	Provider     assistant.Provider
	Sessions     *session.Manager
	History      History
	Logger       *slog.Logger
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr         string
	WriteTimeout time.Duration
	Compress     bool
}

// DefaultServerConfig returns defaults suitable for local use.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":3000",
		WriteTimeout: 180 * time.Second,
		Compress:     true,
	}
}

// Server represents the HTTP API server
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	addr    string
	logger  *slog.Logger
	started time.Time

	store        store.Store
	orchestrator *apply.Orchestrator
	provider     assistant.Provider
	sessions     *session.Manager
	history      History
}

// NewServer creates a new HTTP server instance
func NewServer(cfg ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewManager(session.DefaultMaxSessions)
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultServerConfig().WriteTimeout
	}

	s := &Server{
		addr:         cfg.Addr,
		logger:       logger,
		router:       http.NewServeMux(),
		started:      time.Now(),
		store:        deps.Store,
		orchestrator: deps.Orchestrator,
		provider:     deps.Provider,
		sessions:     sessions,
		history:      deps.History,
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router, cfg.Compress)
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler, compress bool) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	if compress {
		handler = CompressionMiddleware()(handler)
	}
	handler = BodyLimitMiddleware(maxBodyBytes)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware()(handler)
	return handler
}
