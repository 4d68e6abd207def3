package handlers

import (
	"net/http"

	"scambait-lab/internal/streaming"
	"scambait-lab/pkg/logger"
)

// StreamingHandler handles the live intelligence feed
type StreamingHandler struct {
	wsHub    *streaming.WebSocketHub
	eventBus *streaming.EventBus
	logger   *logger.Logger
}

// NewStreamingHandler creates a new StreamingHandler
func NewStreamingHandler(hub *streaming.WebSocketHub, bus *streaming.EventBus, log *logger.Logger) *StreamingHandler {
	return &StreamingHandler{
		wsHub:    hub,
		eventBus: bus,
		logger:   log.WithComponent("streaming"),
	}
}

// HandleWebSocket handles GET /ws/intelligence
func (h *StreamingHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "streaming not configured")
		return
	}
	h.wsHub.ServeWebSocket(w, r)
}

// GetStats handles GET /api/v1/streaming/stats
func (h *StreamingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"clients":     0,
		"subscribers": 0,
	}
	if h.wsHub != nil {
		stats["clients"] = h.wsHub.ClientCount()
	}
	if h.eventBus != nil {
		stats["subscribers"] = h.eventBus.SubscriberCount()
	}

	respondJSON(w, http.StatusOK, stats)
}
