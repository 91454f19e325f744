// Package web serves the attendance service API and the engine status API.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kozaktomas/gatewatch/internal/config"
	"github.com/kozaktomas/gatewatch/internal/database"
	"github.com/kozaktomas/gatewatch/internal/events"
	"github.com/kozaktomas/gatewatch/internal/sightings"
	"github.com/kozaktomas/gatewatch/internal/timesheet"
	"github.com/kozaktomas/gatewatch/internal/web/handlers"
	"github.com/kozaktomas/gatewatch/internal/web/middleware"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server represents the web server
type Server struct {
	config     config.WebConfig
	router     *chi.Mux
	httpServer *http.Server
	logger     *slog.Logger
}

// ServiceDeps are the backends of the attendance service API
type ServiceDeps struct {
	Identities database.IdentityWriter
	Attendance *timesheet.Service
	Sightings  *sightings.Registry
	Gatherer   prometheus.Gatherer
}

// EngineDeps are the backends of the engine status API
type EngineDeps struct {
	// BaseCtx bounds sessions started through the API
	BaseCtx     context.Context
	Engine      handlers.Engine
	Broadcaster *events.Broadcaster
	Gatherer    prometheus.Gatherer
}

func newServer(cfg config.WebConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		config: cfg,
		router: r,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// NewServiceServer creates the attendance and sighting service
func NewServiceServer(cfg config.WebConfig, deps ServiceDeps, logger *slog.Logger) *Server {
	s := newServer(cfg, logger)
	s.setupServiceRoutes(deps)
	return s
}

// NewEngineServer creates the status server that runs next to the monitor.
// It has no write timeout because the event stream is long-lived.
func NewEngineServer(cfg config.WebConfig, deps EngineDeps, logger *slog.Logger) *Server {
	if deps.BaseCtx == nil {
		deps.BaseCtx = context.Background()
	}
	s := newServer(cfg, logger)
	s.setupEngineRoutes(deps)
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
