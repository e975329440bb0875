package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Monitoring endpoints (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/sessions", s.handleListSessions)

		// Trigger routes: invoked by the external scheduler, guarded by
		// the shared-secret bearer check.
		r.Route("/triggers", func(r chi.Router) {
			r.Use(s.triggerAuthMiddleware)
			r.Post("/evaluate", s.handleTriggerEvaluate)
			r.Post("/stop", s.handleTriggerStop)
		})
	})

	return r
}
