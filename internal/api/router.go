package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system/metrics", s.handleSystemMetrics)
		r.Post("/system/reset", s.handleReset)

		r.Route("/space", func(r chi.Router) {
			r.Get("/", s.handleGetSpace)
			r.Put("/container", s.handleResizeContainer)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleAddDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Patch("/", s.handleEditLabel)
					r.Delete("/", s.handleDeleteDevice)
					r.Put("/status", s.handleChangeStatus)
					r.Put("/zoom", s.handleSetZoom)
					r.Post("/label/toggle", s.handleToggleLabel)
					r.Post("/drag", s.handleDragMove)
					r.Post("/drag/end", s.handleDragEnd)
					r.Get("/history", s.handleDeviceHistory)
				})
			})

			r.Route("/connections", func(r chi.Router) {
				r.Post("/", s.handleConnect)
				r.Delete("/", s.handleDisconnect)
			})
		})

		r.Route("/accessories", func(r chi.Router) {
			r.Get("/", s.handleListAccessories)
			r.Post("/", s.handleProvisionAccessory)
			r.Delete("/{id}", s.handleRemoveAccessory)
		})

		r.Post("/output", s.handleOutput)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns service status, including the remote runner when
// one is configured.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"version":        s.version,
		"session":        s.session,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"ws_clients":     s.hub.ClientCount(),
	}
	if s.runner != nil {
		resp["remote"] = s.runner.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
