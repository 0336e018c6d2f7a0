package main

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"tgrelay/internal/middleware"
	"tgrelay/internal/models"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed status.html
var statusPage []byte

type Server struct {
	router *mux.Router
	logger *logrus.Logger
	config models.ServerConfig
	server *http.Server
}

func NewServer(cfg *models.Config, logger *logrus.Logger, verbose bool) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		config: cfg.Server,
	}

	s.router.Use(middleware.ObservabilityMiddleware(logger))
	if verbose {
		s.router.Use(middleware.DetailedLoggingMiddleware(logger, middleware.DefaultDetailedLoggingConfig()))
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.config.IdleTimeoutSec) * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/", s.handleStatusPage()).Methods(http.MethodGet)

	if s.config.MetricsEnabled {
		s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	}
}

// Start blocks until the server stops. It returns nil once Shutdown has
// been called, even if Shutdown ran first.
func (s *Server) Start() error {
	s.logger.Infof("Starting server on port %d", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// handleStatusPage is informational only
func (s *Server) handleStatusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(statusPage)
	}
}
