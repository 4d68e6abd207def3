package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"scambait-lab/internal/api"
	"scambait-lab/internal/api/handlers"
	"scambait-lab/internal/config"
	"scambait-lab/internal/domain/services"
	"scambait-lab/internal/domain/services/ai"
	"scambait-lab/internal/infrastructure/cache"
	"scambait-lab/internal/infrastructure/database"
	"scambait-lab/internal/infrastructure/database/repository"
	"scambait-lab/internal/observability"
	"scambait-lab/internal/streaming"
	"scambait-lab/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("starting scam engagement service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis (optional, degrades to uncached operation)
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	// PostgreSQL (optional, reports stay in memory only without it)
	var db *database.PostgresDB
	var reportRepo *repository.ReportRepository
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("PostgreSQL unavailable, continuing without report storage")
			db = nil
		} else {
			defer db.Close()
			reportRepo = repository.NewReportRepository(db.Pool())
		}
	}

	// NATS JetStream (optional, local event bus still works without it)
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, continuing with local event bus only")
			natsPublisher = nil
		}
	}

	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()

	wsHub := streaming.NewWebSocketHub(natsPublisher, log)
	go wsHub.Run(ctx)

	publisher := streaming.NewEventBusPublisher(eventBus, wsHub)

	metrics := observability.NewMetrics("scambait")

	// AI collaborators
	scorer := ai.NewZeroShotClient(ai.ZeroShotConfig{
		APIURL:  cfg.Classifier.APIURL,
		APIKey:  cfg.Classifier.APIKey,
		Model:   cfg.Classifier.Model,
		Timeout: cfg.Classifier.Timeout,
	}, log)
	completer := ai.NewChatClient(ai.ChatConfig{
		APIURL:      cfg.Generator.APIURL,
		APIKey:      cfg.Generator.APIKey,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
		Timeout:     cfg.Generator.Timeout,
	}, log)
	ner := ai.NewNERClient(ai.NERConfig{
		APIURL:  cfg.Extractor.NERAPIURL,
		APIKey:  cfg.Extractor.NERAPIKey,
		Model:   cfg.Extractor.NERModel,
		Timeout: cfg.Extractor.Timeout,
	}, log)

	// Domain services
	memory := services.NewMemory(services.MemoryConfig{
		WindowSize: cfg.Engagement.MaxMemoryTurns,
	}, log)
	classifier := services.NewClassifier(scorer, redisCache, services.ClassifierConfig{
		ScamThreshold: cfg.Classifier.ScamThreshold,
		TypeThreshold: cfg.Classifier.TypeThreshold,
		CacheTTL:      cfg.Classifier.CacheTTL,
	}, log)
	generator := services.NewGenerator(completer, log)
	safety := services.NewSafetyFilter(services.SafetyFilterConfig{
		ExemptEchoedDigits: cfg.Safety.ExemptEchoedDigits,
	}, log)
	extractor := services.NewExtractor(ner, services.ExtractorConfig{
		MinConfidence: cfg.Extractor.MinConfidence,
	}, log)
	callback := services.NewCallbackClient(services.CallbackConfig{
		Enabled: cfg.Callback.Enabled,
		URL:     cfg.Callback.URL,
		Timeout: cfg.Callback.Timeout,
	}, log)

	var reportStore services.ReportStore
	if reportRepo != nil {
		reportStore = reportRepo
	}

	pipeline := services.NewPipeline(
		memory, classifier, generator, safety, extractor, callback,
		publisher, reportStore, metrics,
		services.PipelineConfig{
			MaxTurns:            cfg.Engagement.MaxTurns,
			TerminationKeywords: cfg.Engagement.TerminationKeywords,
			Weights: services.ScoringWeights{
				ScamProbability: cfg.Scoring.Weights.ScamProbability,
				EntityVolume:    cfg.Scoring.Weights.EntityVolume,
				RiskFlags:       cfg.Scoring.Weights.RiskFlags,
			},
			ExtractionScope: cfg.Extractor.Scope,
		},
		log,
	)

	sweeper := services.NewSweeper(memory, pipeline, cfg.Engagement.SessionTTL, cfg.Engagement.SweepInterval, log)
	go func() {
		if err := sweeper.Start(ctx); err != nil {
			log.Error().Err(err).Msg("sweeper failed to start")
		}
	}()
	defer sweeper.Stop()

	// HTTP server
	h := handlers.NewHandlers(handlers.Dependencies{
		Pipeline:   pipeline,
		Memory:     memory,
		Classifier: classifier,
		Extractor:  extractor,
		Cache:      redisCache,
		DB:         db,
		Reports:    reportRepo,
		EventBus:   eventBus,
		WSHub:      wsHub,
		Logger:     log,
	})

	router := api.NewRouter(*cfg, h, redisCache, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()

	log.Info().Msg("shutdown complete")
}
