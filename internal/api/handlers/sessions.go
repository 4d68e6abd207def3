package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/domain/services"
	"scambait-lab/pkg/logger"
)

// SessionsHandler handles session inspection and termination endpoints
type SessionsHandler struct {
	memory   *services.Memory
	pipeline *services.Pipeline
	logger   *logger.Logger
}

// NewSessionsHandler creates a new SessionsHandler
func NewSessionsHandler(m *services.Memory, p *services.Pipeline, log *logger.Logger) *SessionsHandler {
	return &SessionsHandler{
		memory:   m,
		pipeline: p,
		logger:   log.WithComponent("sessions"),
	}
}

// List handles GET /api/v1/sessions
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.memory.List()

	summaries := make([]models.SessionSummary, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, sessions[i].Summary())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, ok := h.memory.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Terminate handles POST /api/v1/sessions/{id}/terminate
func (h *SessionsHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.pipeline.TerminateSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", id).Msg("termination failed")
		respondError(w, http.StatusInternalServerError, "termination failed")
		return
	}

	respondJSON(w, http.StatusOK, session.Summary())
}
