/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the scheduling frontend

ROUTE GROUPS:
  /api/photographers/*  Compensation profiles (edits trigger recalc)
  /api/schools/*        Shoot locations (moves trigger recalc)
  /api/sessions/*       Scheduled work + cost history
  /api/time-entries     Raw clock records
  /api/admin/*          Backfill, database reset (dev only)
  /api/scenarios/*      Demo data loaders

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

	r.Route("/api", func(r chi.Router) {
		r.Route("/photographers", func(r chi.Router) {
			r.Get("/", h.ListPhotographers)
			r.Post("/", h.CreatePhotographer)
			r.Get("/{id}", h.GetPhotographer)
			r.Put("/{id}", h.UpdatePhotographer)
		})

		r.Route("/schools", func(r chi.Router) {
			r.Get("/", h.ListSchools)
			r.Post("/", h.CreateSchool)
			r.Get("/{id}", h.GetSchool)
			r.Put("/{id}", h.UpdateSchool)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Get("/{id}", h.GetSession)
			r.Put("/{id}", h.UpdateSession)
			r.Get("/{id}/costs", h.GetSessionCosts)
		})

		r.Post("/time-entries", h.CreateTimeEntry)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/backfill", h.Backfill)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})

		// Database reset (dev only)
		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
