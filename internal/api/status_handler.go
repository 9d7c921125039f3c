package api

import (
	"net/http"
	"time"
)

// Version — версия сервиса, подставляется через ldflags при сборке.
var Version = "dev"

// Status возвращает состояние сервиса: активный бэкенд store
// (degraded-сигнал для health-check), доступность messaging, uptime.
// GET /api/v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	messaging := "disabled"
	if h.conn != nil && h.conn.IsConnected() {
		messaging = "connected"
	}

	Success(w, StatusResponse{
		Service:   "studyflow-scheduler",
		Version:   Version,
		Status:    "running",
		Storage:   h.store.Backend(),
		Messaging: messaging,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}
