package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/domain/services"
	"scambait-lab/pkg/logger"
)

// EngageHandler handles conversation turns with scammers
type EngageHandler struct {
	pipeline *services.Pipeline
	logger   *logger.Logger
}

// NewEngageHandler creates a new EngageHandler
func NewEngageHandler(p *services.Pipeline, log *logger.Logger) *EngageHandler {
	return &EngageHandler{
		pipeline: p,
		logger:   log.WithComponent("engage"),
	}
}

// Engage handles POST /api/v1/engage
func (h *EngageHandler) Engage(w http.ResponseWriter, r *http.Request) {
	var req models.EngageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.pipeline.EngageTurn(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("engagement turn failed")
			respondError(w, http.StatusInternalServerError, "engagement failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}
