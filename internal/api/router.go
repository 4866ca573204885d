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

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", s.handleGetCatalog)
			r.Get("/countries", s.handleListCountries)
			r.Get("/categories/{category}", s.handleGetCategory)
			r.With(s.adminMiddleware).Post("/refresh", s.handleRefreshCatalog)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/stats", s.handleDeviceStats)
			r.Get("/{id}", s.handleGetDevice)
			r.Get("/{id}/entities", s.handleDeviceEntities)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Get("/{id}", s.handleGetReport)
			r.With(s.adminMiddleware).Post("/", s.handleAnalyze)
		})

		r.With(s.adminMiddleware).Get("/activity", s.handleListActivity)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.catalog.Snapshot()

	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"catalog": map[string]any{
			"loaded":     snap.Loaded(),
			"loaded_at":  snap.LoadedAt,
			"categories": len(snap.Devices),
		},
		"devices":   s.registry.GetStats(),
		"websocket": s.Hub().Stats(),
	}
	if !s.startedAt.IsZero() {
		resp["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	if s.bridge != nil {
		resp["bridge"] = s.bridge.GetMetrics()
	}

	writeJSON(w, http.StatusOK, resp)
}
