package handlers

import (
	"net/http"
	"time"

	"scambait-lab/internal/domain/services"
	"scambait-lab/internal/infrastructure/cache"
	"scambait-lab/internal/streaming"
	"scambait-lab/pkg/logger"
)

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	memory   *services.Memory
	cache    *cache.RedisCache
	wsHub    *streaming.WebSocketHub
	eventBus *streaming.EventBus
	logger   *logger.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(m *services.Memory, c *cache.RedisCache, hub *streaming.WebSocketHub, bus *streaming.EventBus, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		memory:   m,
		cache:    c,
		wsHub:    hub,
		eventBus: bus,
		logger:   log.WithComponent("stats"),
	}
}

// StatsResponse aggregates service statistics
type StatsResponse struct {
	Sessions         services.MemoryStats `json:"sessions"`
	StreamingClients int                  `json:"streaming_clients"`
	EventSubscribers int                  `json:"event_subscribers"`
	Timestamp        time.Time            `json:"timestamp"`
}

// Get handles GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var cached StatsResponse
		if err := h.cache.GetJSON(r.Context(), cache.KeyStats, &cached); err == nil {
			w.Header().Set("Cache-Control", "public, max-age=60")
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	stats := StatsResponse{
		Sessions:  h.memory.Stats(),
		Timestamp: time.Now().UTC(),
	}
	if h.wsHub != nil {
		stats.StreamingClients = h.wsHub.ClientCount()
	}
	if h.eventBus != nil {
		stats.EventSubscribers = h.eventBus.SubscriberCount()
	}

	if h.cache != nil {
		_ = h.cache.SetJSON(r.Context(), cache.KeyStats, stats, time.Minute)
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	respondJSON(w, http.StatusOK, stats)
}
