package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/gatewatch/internal/web/handlers"
	"github.com/kozaktomas/gatewatch/internal/web/middleware"
)

func (s *Server) setupServiceRoutes(deps ServiceDeps) {
	identitiesHandler := handlers.NewIdentitiesHandler(deps.Identities, s.logger)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Attendance, s.logger)
	unknownsHandler := handlers.NewUnknownsHandler(deps.Sightings, s.logger)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	if deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(s.config.APIKey))
		r.Use(chiMiddleware.Timeout(requestTimeout))

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Create)
		r.Delete("/identities/{id}", identitiesHandler.Delete)

		// Attendance
		r.Get("/identities/{id}/attendance/last", attendanceHandler.Last)
		r.Post("/identities/{id}/attendance/in", attendanceHandler.In)
		r.Post("/identities/{id}/attendance/out", attendanceHandler.Out)
		r.Get("/identities/{id}/attendance/summary", attendanceHandler.Summary)

		// Unknown sightings
		r.Post("/unknowns", unknownsHandler.Log)
		r.Get("/unknowns", unknownsHandler.List)
		r.Delete("/unknowns/{id}", unknownsHandler.Delete)
	})
}

func (s *Server) setupEngineRoutes(deps EngineDeps) {
	monitorHandler := handlers.NewMonitorHandler(deps.BaseCtx, deps.Engine, deps.Broadcaster, s.logger)

	s.router.Get("/api/v1/health", handlers.HealthCheck)
	if deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(s.config.APIKey))

		// Event stream is long-lived; everything else is bounded
		r.Get("/events", monitorHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))
			r.Get("/status", monitorHandler.Status)
			r.Post("/monitor/start", monitorHandler.Start)
			r.Post("/monitor/stop", monitorHandler.Stop)
		})
	})
}
