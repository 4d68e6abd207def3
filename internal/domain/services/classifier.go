package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/domain/services/ai"
	"scambait-lab/internal/infrastructure/cache"
	"scambait-lab/pkg/logger"
)

// ErrEmptyText is returned when classification or extraction is asked to
// process blank input
var ErrEmptyText = errors.New("text must not be empty")

// PrimaryLabels are the stage-one candidate labels
var PrimaryLabels = []string{"scam", "legitimate"}

// ClassifierConfig holds scam classifier configuration
type ClassifierConfig struct {
	ScamThreshold float64
	TypeThreshold float64
	CacheTTL      time.Duration
}

// Classifier runs the two-stage scam classification: a binary scam vs
// legitimate pass, then category scoring for scam-positive texts only.
type Classifier struct {
	scorer ai.LabelScorer
	cache  *cache.RedisCache
	config ClassifierConfig
	logger *logger.Logger
}

// NewClassifier creates a new scam classifier. cache may be nil.
func NewClassifier(scorer ai.LabelScorer, redisCache *cache.RedisCache, cfg ClassifierConfig, log *logger.Logger) *Classifier {
	if cfg.ScamThreshold == 0 {
		cfg.ScamThreshold = 0.5
	}
	if cfg.TypeThreshold == 0 {
		cfg.TypeThreshold = 0.3
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	return &Classifier{
		scorer: scorer,
		cache:  redisCache,
		config: cfg,
		logger: log.WithComponent("classifier"),
	}
}

// Classify runs both stages on a single text. Collaborator failure produces
// a degraded result, never an error: the caller decides how to proceed.
func (c *Classifier) Classify(ctx context.Context, text string) (models.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.ClassificationResult{}, ErrEmptyText
	}

	hash := textHash(text)
	if c.cache != nil {
		var cached models.ClassificationResult
		if err := c.cache.GetCachedClassification(ctx, hash, &cached); err == nil {
			return cached, nil
		}
	}

	result := c.classify(ctx, text)

	if c.cache != nil && !result.Degraded {
		if err := c.cache.CacheClassification(ctx, hash, result, c.config.CacheTTL); err != nil {
			c.logger.Debug().Err(err).Msg("failed to cache classification")
		}
	}
	return result, nil
}

// ClassifyBatch classifies texts preserving input order. Each element
// degrades independently.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) ([]models.ClassificationResult, error) {
	results := make([]models.ClassificationResult, len(texts))
	for i, text := range texts {
		res, err := c.Classify(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (c *Classifier) classify(ctx context.Context, text string) models.ClassificationResult {
	scores, err := c.scorer.ScoreLabels(ctx, text, PrimaryLabels)
	if err != nil {
		c.logger.Warn().Err(err).Msg("primary classification failed, returning degraded result")
		return models.ClassificationResult{Degraded: true}
	}

	probability := scores["scam"]
	result := models.ClassificationResult{
		Probability: probability,
		IsScam:      probability >= c.config.ScamThreshold,
	}

	if !result.IsScam {
		return result
	}

	typeLabels := make([]string, len(models.ScamTypes))
	for i, t := range models.ScamTypes {
		typeLabels[i] = string(t)
	}

	typeScores, err := c.scorer.ScoreLabels(ctx, text, typeLabels)
	if err != nil {
		// A scam verdict without a category is still usable
		c.logger.Warn().Err(err).Msg("type classification failed, keeping binary verdict")
		result.ScamType = models.ScamTypeOther
		return result
	}

	result.TypeScores = typeScores

	best, bestScore := models.ScamTypeOther, 0.0
	for label, score := range typeScores {
		if score > bestScore {
			best, bestScore = models.ScamType(label), score
		}
	}
	if bestScore >= c.config.TypeThreshold {
		result.ScamType = best
		result.TypeConfidence = bestScore
	} else {
		result.ScamType = models.ScamTypeOther
		result.TypeConfidence = bestScore
	}
	return result
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
