package api

import (
	"net/http"
	"strconv"
)

// History возвращает архивные записи повторений для subject,
// по убыванию due_at.
// GET /api/v1/history/{subjectId}?limit=N
//
// Доступно только при включённой ретенции (Postgres-архив).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		Error(w, http.StatusNotFound, ErrCodeNotFound, "archive is not enabled")
		return
	}

	subjectID := r.PathValue("subjectId")
	if subjectID == "" {
		BadRequest(w, "subjectId is required")
		return
	}

	var limit int
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		parsed, err := strconv.Atoi(lStr)
		if err != nil || parsed <= 0 {
			BadRequest(w, "invalid limit: expected positive integer")
			return
		}
		limit = parsed
	}

	items, err := h.archive.ListBySubject(r.Context(), subjectID, limit)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := HistoryFromDomain(items)
	List(w, result, len(result))
}
