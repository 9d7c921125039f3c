package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/studyflow-scheduler/internal/engine"
)

// Seed вставляет item вручную (операторский smoke-тест).
// POST /api/v1/seed
//
// Тело: {"subjectId": "doc-42", "dueAt": "2025-01-15T10:00:00Z"}
// dueAt опционален: без него item становится due немедленно.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	item, err := h.engine.Seed(r.Context(), req.SubjectID, req.DueAt)
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			ValidationError(w, err.Error())
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, SeedFromDomain(item))
}
