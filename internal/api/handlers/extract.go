package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"scambait-lab/internal/domain/services"
	"scambait-lab/pkg/logger"
)

// ExtractHandler handles standalone intelligence extraction endpoints
type ExtractHandler struct {
	extractor *services.Extractor
	logger    *logger.Logger
}

// NewExtractHandler creates a new ExtractHandler
func NewExtractHandler(e *services.Extractor, log *logger.Logger) *ExtractHandler {
	return &ExtractHandler{
		extractor: e,
		logger:    log.WithComponent("extract"),
	}
}

// ExtractRequest is the request body for extraction
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractBatchRequest is the request body for batch extraction
type ExtractBatchRequest struct {
	Texts []string `json:"texts"`
}

// Extract handles POST /api/v1/extract
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bundle, err := h.extractor.Extract(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, services.ErrEmptyText) || errors.Is(err, services.ErrTranscriptTooLong) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("extraction failed")
		respondError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"intelligence":        bundle,
		"suspicious_keywords": h.extractor.SuspiciousKeywords(req.Text),
	})
}

// ExtractBatch handles POST /api/v1/extract/batch
func (h *ExtractHandler) ExtractBatch(w http.ResponseWriter, r *http.Request) {
	var req ExtractBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		respondError(w, http.StatusBadRequest, "texts must not be empty")
		return
	}

	bundles, err := h.extractor.ExtractBatch(r.Context(), req.Texts)
	if err != nil {
		if errors.Is(err, services.ErrEmptyText) || errors.Is(err, services.ErrTranscriptTooLong) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("batch extraction failed")
		respondError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": bundles,
		"count":   len(bundles),
	})
}
