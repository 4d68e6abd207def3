package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"scambait-lab/internal/api/handlers"
	apimiddleware "scambait-lab/internal/api/middleware"
	"scambait-lab/internal/config"
	"scambait-lab/internal/infrastructure/cache"
	"scambait-lab/internal/observability"
	"scambait-lab/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	cache    *cache.RedisCache
	logger   *logger.Logger
}

// NewRouter creates a new Router instance
func NewRouter(cfg config.Config, h *handlers.Handlers, c *cache.RedisCache, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		cache:    c,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Rate limiting
	if r.config.RateLimit.Enabled {
		router.Use(apimiddleware.RateLimiter(r.cache, r.config.RateLimit))
	}

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
		pub.Handle("/metrics", observability.MetricsHandler())
	})

	// API v1 routes (authenticated)
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(apimiddleware.APIKeyAuth(r.config.Auth))

		// Conversation engagement
		api.Post("/engage", r.handlers.Engage.Engage)

		// Standalone scam detection
		api.Route("/detect", func(detect chi.Router) {
			detect.Post("/", r.handlers.Detect.Detect)
			detect.Post("/batch", r.handlers.Detect.DetectBatch)
		})

		// Standalone intelligence extraction
		api.Route("/extract", func(extract chi.Router) {
			extract.Post("/", r.handlers.Extract.Extract)
			extract.Post("/batch", r.handlers.Extract.ExtractBatch)
		})

		// Session inspection and control
		api.Route("/sessions", func(sessions chi.Router) {
			sessions.Get("/", r.handlers.Sessions.List)
			sessions.Get("/{id}", r.handlers.Sessions.Get)
			sessions.Post("/{id}/terminate", r.handlers.Sessions.Terminate)
		})

		// Persisted engagement reports
		api.Route("/reports", func(reports chi.Router) {
			reports.Get("/", r.handlers.Reports.List)
			reports.Get("/{session_id}", r.handlers.Reports.Get)
		})

		// Stats
		api.Get("/stats", r.handlers.Stats.Get)
		api.Get("/streaming/stats", r.handlers.Streaming.GetStats)
	})

	// WebSocket streaming endpoint (live intelligence feed for dashboards)
	router.Get("/ws/intelligence", r.handlers.Streaming.HandleWebSocket)

	return router
}
