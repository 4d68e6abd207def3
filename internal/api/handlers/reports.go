package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scambait-lab/internal/infrastructure/database/repository"
	"scambait-lab/pkg/logger"
)

// ReportsHandler serves persisted engagement reports
type ReportsHandler struct {
	reports *repository.ReportRepository
	logger  *logger.Logger
}

// NewReportsHandler creates a new ReportsHandler
func NewReportsHandler(reports *repository.ReportRepository, log *logger.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports: reports,
		logger:  log.WithComponent("reports"),
	}
}

// List handles GET /api/v1/reports
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondError(w, http.StatusServiceUnavailable, "report storage not configured")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	reports, err := h.reports.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list reports")
		respondError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// Get handles GET /api/v1/reports/{session_id}
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondError(w, http.StatusServiceUnavailable, "report storage not configured")
		return
	}

	sessionID := chi.URLParam(r, "session_id")

	report, err := h.reports.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			respondError(w, http.StatusNotFound, "report not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to get report")
		respondError(w, http.StatusInternalServerError, "failed to get report")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
