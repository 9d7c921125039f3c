package api

import (
	"net/http"
	"strconv"
	"time"
)

// Today возвращает items, due в ближайшие 24 часа.
// GET /api/v1/schedule/today
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	items, err := h.query.Window(r.Context(), time.Now(), 0)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := WindowFromDomain(items)
	List(w, result, len(result))
}

// Window возвращает items в произвольном окне.
// GET /api/v1/schedule/window?now=RFC3339&horizon_seconds=N
//
// Оба параметра опциональны: now по умолчанию — текущее время,
// horizon — 24 часа.
func (h *Handler) Window(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if nowStr := r.URL.Query().Get("now"); nowStr != "" {
		parsed, err := time.Parse(time.RFC3339, nowStr)
		if err != nil {
			BadRequest(w, "invalid now: expected RFC3339 timestamp")
			return
		}
		now = parsed
	}

	var horizon time.Duration
	if hStr := r.URL.Query().Get("horizon_seconds"); hStr != "" {
		secs, err := strconv.ParseInt(hStr, 10, 64)
		if err != nil || secs <= 0 {
			BadRequest(w, "invalid horizon_seconds: expected positive integer")
			return
		}
		horizon = time.Duration(secs) * time.Second
	}

	items, err := h.query.Window(r.Context(), now, horizon)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := WindowFromDomain(items)
	List(w, result, len(result))
}
