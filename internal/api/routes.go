package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	mux.Handle("GET /api/v1/schedule/today", chain(http.HandlerFunc(h.Today)))
	mux.Handle("GET /api/v1/schedule/window", chain(http.HandlerFunc(h.Window)))
	mux.Handle("GET /api/v1/history/{subjectId}", chain(http.HandlerFunc(h.History)))
	mux.Handle("POST /api/v1/seed", chain(http.HandlerFunc(h.Seed)))
	mux.Handle("GET /api/v1/status", chain(http.HandlerFunc(h.Status)))
}
