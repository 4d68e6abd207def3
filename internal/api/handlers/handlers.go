package handlers

import (
	"encoding/json"
	"net/http"

	"scambait-lab/internal/domain/services"
	"scambait-lab/internal/infrastructure/cache"
	"scambait-lab/internal/infrastructure/database"
	"scambait-lab/internal/infrastructure/database/repository"
	"scambait-lab/internal/streaming"
	"scambait-lab/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health    *HealthHandler
	Engage    *EngageHandler
	Detect    *DetectHandler
	Extract   *ExtractHandler
	Sessions  *SessionsHandler
	Reports   *ReportsHandler
	Stats     *StatsHandler
	Streaming *StreamingHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Pipeline   *services.Pipeline
	Memory     *services.Memory
	Classifier *services.Classifier
	Extractor  *services.Extractor
	Cache      *cache.RedisCache
	DB         *database.PostgresDB
	Reports    *repository.ReportRepository
	EventBus   *streaming.EventBus
	WSHub      *streaming.WebSocketHub
	Logger     *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Cache, deps.DB, deps.Logger),
		Engage:    NewEngageHandler(deps.Pipeline, deps.Logger),
		Detect:    NewDetectHandler(deps.Classifier, deps.Logger),
		Extract:   NewExtractHandler(deps.Extractor, deps.Logger),
		Sessions:  NewSessionsHandler(deps.Memory, deps.Pipeline, deps.Logger),
		Reports:   NewReportsHandler(deps.Reports, deps.Logger),
		Stats:     NewStatsHandler(deps.Memory, deps.Cache, deps.WSHub, deps.EventBus, deps.Logger),
		Streaming: NewStreamingHandler(deps.WSHub, deps.EventBus, deps.Logger),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
