/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/evaluations     Evaluation intake
  /api/attendants/*    Attendant state, history, metrics, recompute
  /api/metrics/*       Bulk period metrics
  /api/achievements/*  Achievement catalog
  /api/scenarios/*     Demo data loaders
  /api/healthz         Liveness
  /metrics             Prometheus exposition

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/scoring-engine/telemetry"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Evaluation intake
		r.Post("/evaluations", h.SubmitEvaluation)

		// Attendant routes
		r.Route("/attendants", func(r chi.Router) {
			r.Get("/", h.ListAttendants)
			r.Post("/", h.CreateAttendant)
			r.Get("/{id}", h.GetAttendant)
			r.Get("/{id}/gamification", h.GetGamification)
			r.Get("/{id}/evaluations", h.GetEvaluations)
			r.Get("/{id}/metrics", h.GetMetrics)
			r.Post("/{id}/recompute", h.Recompute)
		})

		// Metrics routes
		r.Route("/metrics", func(r chi.Router) {
			r.Post("/bulk", h.BulkMetrics)
		})

		// Achievement catalog routes
		r.Route("/achievements", func(r chi.Router) {
			r.Get("/", h.ListAchievements)
			r.Post("/", h.SaveAchievement)
		})

		// Demo scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Get("/healthz", h.Health)
	})

	// Prometheus exposition
	r.Handle("/metrics", telemetry.Handler())

	return r
}
