package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/scanner", func(r chi.Router) {
			r.Get("/", s.handleGetScanner)
			r.Get("/status", s.handleGetStatus)
			r.Get("/talkgroup", s.handleGetTalkgroup)
			r.Put("/program", s.handleSetProgram)
			r.Post("/key", s.handlePressKey)
			r.Post("/quick-search", s.handleQuickSearch)
			r.Post("/poweroff", s.handlePowerOff)

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.handleGetSettings)
				r.Put("/", s.handleUpdateSettings)
				r.Post("/clear", s.handleClearMemory)
			})
		})

		r.Route("/systems", func(r chi.Router) {
			r.Get("/", s.handleListSystems)
			r.Post("/", s.handleCreateSystem)
			r.Get("/quick-lockout", s.handleGetQuickLockout)
			r.Put("/quick-lockout", s.handleSetQuickLockout)

			r.Route("/{index}", func(r chi.Router) {
				r.Get("/", s.handleGetSystem)
				r.Delete("/", s.handleDeleteSystem)
				r.Get("/group-lockout", s.handleGetGroupLockout)
				r.Put("/group-lockout", s.handleSetGroupLockout)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.scanner.Stats()

	status := "ok"
	if stats.PoweredOff {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"port":           s.scanner.Port(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}
