package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"scambait-lab/internal/domain/services"
	"scambait-lab/pkg/logger"
)

// DetectHandler handles standalone scam classification endpoints
type DetectHandler struct {
	classifier *services.Classifier
	logger     *logger.Logger
}

// NewDetectHandler creates a new DetectHandler
func NewDetectHandler(c *services.Classifier, log *logger.Logger) *DetectHandler {
	return &DetectHandler{
		classifier: c,
		logger:     log.WithComponent("detect"),
	}
}

// DetectRequest is the request body for classification
type DetectRequest struct {
	Text string `json:"text"`
}

// DetectBatchRequest is the request body for batch classification
type DetectBatchRequest struct {
	Texts []string `json:"texts"`
}

// Detect handles POST /api/v1/detect
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.classifier.Classify(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, services.ErrEmptyText) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("classification failed")
		respondError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// DetectBatch handles POST /api/v1/detect/batch
func (h *DetectHandler) DetectBatch(w http.ResponseWriter, r *http.Request) {
	var req DetectBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		respondError(w, http.StatusBadRequest, "texts must not be empty")
		return
	}

	results, err := h.classifier.ClassifyBatch(r.Context(), req.Texts)
	if err != nil {
		if errors.Is(err, services.ErrEmptyText) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("batch classification failed")
		respondError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}
