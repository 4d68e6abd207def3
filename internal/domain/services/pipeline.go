package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/observability"
	"scambait-lab/pkg/logger"
)

// ErrInvalidRequest marks engagement requests rejected before any mutation
var ErrInvalidRequest = errors.New("invalid engagement request")

// TerminationReply closes out a conversation
const TerminationReply = "Thank you for calling. Goodbye."

// EventPublisher receives pipeline events for real-time streaming.
// Implementations must not block the turn.
type EventPublisher interface {
	PublishIntelligence(ctx context.Context, sessionID string, bundle models.IntelligenceBundle, riskScore float64)
	PublishScamDetected(ctx context.Context, sessionID string, result models.ClassificationResult)
	PublishSessionTerminated(ctx context.Context, report models.EngagementReport)
}

// ReportStore persists finished engagement reports
type ReportStore interface {
	SaveReport(ctx context.Context, report models.EngagementReport) error
}

// ScoringWeights tune the risk score blend
type ScoringWeights struct {
	ScamProbability float64
	EntityVolume    float64
	RiskFlags       float64
}

// PipelineConfig holds orchestrator configuration
type PipelineConfig struct {
	MaxTurns            int
	TerminationKeywords []string
	Weights             ScoringWeights
	ExtractionScope     string // "message" or "transcript"
}

// Pipeline orchestrates one engagement turn: classify the inbound message,
// generate an in-character reply, screen it, extract intelligence, score
// risk, and commit the session mutation as a unit.
type Pipeline struct {
	memory     *Memory
	classifier *Classifier
	generator  *Generator
	safety     *SafetyFilter
	extractor  *Extractor
	callback   *CallbackClient
	events     EventPublisher
	reports    ReportStore
	metrics    *observability.Metrics
	config     PipelineConfig
	logger     *logger.Logger
}

// NewPipeline creates a new pipeline orchestrator. events, reports, and
// metrics may be nil.
func NewPipeline(
	memory *Memory,
	classifier *Classifier,
	generator *Generator,
	safety *SafetyFilter,
	extractor *Extractor,
	callback *CallbackClient,
	events EventPublisher,
	reports ReportStore,
	metrics *observability.Metrics,
	cfg PipelineConfig,
	log *logger.Logger,
) *Pipeline {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 20
	}
	if cfg.Weights == (ScoringWeights{}) {
		cfg.Weights = ScoringWeights{ScamProbability: 0.6, EntityVolume: 0.2, RiskFlags: 0.2}
	}
	if cfg.ExtractionScope == "" {
		cfg.ExtractionScope = "message"
	}
	return &Pipeline{
		memory:     memory,
		classifier: classifier,
		generator:  generator,
		safety:     safety,
		extractor:  extractor,
		callback:   callback,
		events:     events,
		reports:    reports,
		metrics:    metrics,
		config:     cfg,
		logger:     log.WithComponent("pipeline"),
	}
}

// EngageTurn processes one inbound counterpart message end to end
func (p *Pipeline) EngageTurn(ctx context.Context, req models.EngageRequest) (models.EngageResult, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return models.EngageResult{}, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	text := strings.TrimSpace(req.Message.Text)
	if text == "" {
		return models.EngageResult{}, fmt.Errorf("%w: message text is required", ErrInvalidRequest)
	}

	log := p.logger.WithSessionID(req.SessionID)

	var (
		result         models.EngageResult
		classification models.ClassificationResult
		verdict        models.SafetyVerdict
		outcome        = "ok"
		finalize       bool
		finalSnapshot  models.Session
	)

	err := p.memory.WithSession(req.SessionID, func(s *models.Session) error {
		if s.Terminated {
			// Idempotent goodbye: no stages run, nothing mutates
			outcome = "already_terminated"
			result = p.terminatedResult(s)
			return nil
		}

		if len(s.Turns) == 0 && len(req.ConversationHistory) > 0 {
			p.seedHistory(s, req.ConversationHistory)
		}

		stageStart := time.Now()
		classification, _ = p.classifier.Classify(ctx, text)
		p.observeStage(models.StageClassified, stageStart)
		if classification.Degraded {
			p.countCollaboratorError("classifier")
		}

		terminating := p.isTermination(text) || s.TurnCount+1 > p.config.MaxTurns

		var reply string
		if terminating {
			reply = TerminationReply
		} else {
			stageStart = time.Now()
			candidate := p.generator.Generate(ctx, s.Turns, text)
			p.observeStage(models.StageResponded, stageStart)

			stageStart = time.Now()
			reply, verdict = p.safety.Filter(candidate, counterpartTexts(s.Turns, text))
			p.observeStage(models.StageFiltered, stageStart)
			if verdict.Triggered {
				p.countSafetyTrigger(verdict)
			}
		}

		stageStart = time.Now()
		scopeText := text
		if p.config.ExtractionScope == "transcript" {
			scopeText = transcriptText(s.Turns, text)
		}
		bundle, err := p.extractor.Extract(ctx, scopeText)
		if err != nil {
			// Oversized or otherwise unextractable input degrades to an
			// empty bundle rather than failing the turn
			log.Warn().Err(err).Msg("extraction failed, continuing with empty bundle")
			bundle = models.IntelligenceBundle{}
		}
		keywords := p.extractor.SuspiciousKeywords(scopeText)
		p.observeStage(models.StageExtracted, stageStart)

		// All stages succeeded; commit the turn as a unit
		now := time.Now()
		inboundAt := req.Message.Timestamp
		if inboundAt.IsZero() {
			inboundAt = now
		}
		window := p.memory.WindowSize()
		appendTurn(s, models.Turn{ID: uuid.New(), Role: models.RoleScammer, Text: text, Timestamp: inboundAt}, window)
		appendTurn(s, models.Turn{ID: uuid.New(), Role: models.RoleHoneypot, Text: reply, Timestamp: now}, window)
		s.TurnCount++
		s.LastActive = now

		s.Intelligence.Merge(bundle)
		deriveRiskFlags(&s.Intelligence)
		s.SuspiciousKeywords = unionStrings(s.SuspiciousKeywords, keywords)

		if !classification.Degraded && classification.IsScam {
			s.ScamDetected = true
			s.LastScamType = classification.ScamType
		}

		s.LastRiskScore = p.riskScore(classification, &s.Intelligence)

		if terminating {
			s.Terminated = true
			outcome = "terminated"
			if !s.CallbackSent {
				s.CallbackSent = true
				finalize = true
			}
		}

		result = models.EngageResult{
			SessionID:    s.ID,
			ReplyText:    reply,
			TurnNumber:   s.TurnCount,
			Terminated:   s.Terminated,
			ScamDetected: s.ScamDetected,
			RiskScore:    s.LastRiskScore,
			Intelligence: s.Intelligence,
		}
		finalSnapshot = snapshot(s)
		return nil
	})
	if err != nil {
		return models.EngageResult{}, err
	}

	if p.metrics != nil {
		p.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
		if !classification.Degraded && classification.IsScam {
			p.metrics.ScamDetections.Inc()
		}
	}

	if outcome == "already_terminated" {
		return result, nil
	}

	log.Info().
		Int("turn", result.TurnNumber).
		Bool("scam_detected", result.ScamDetected).
		Bool("terminated", result.Terminated).
		Float64("risk_score", result.RiskScore).
		Msg("engagement turn processed")

	if p.events != nil {
		p.events.PublishIntelligence(ctx, result.SessionID, result.Intelligence, result.RiskScore)
		if !classification.Degraded && classification.IsScam {
			p.events.PublishScamDetected(ctx, result.SessionID, classification)
		}
	}

	if finalize {
		p.finalize(ctx, finalSnapshot)
	}

	return result, nil
}

// TerminateSession force-closes a session via the API
func (p *Pipeline) TerminateSession(ctx context.Context, sessionID string) (models.Session, error) {
	if _, ok := p.memory.Get(sessionID); !ok {
		return models.Session{}, ErrSessionNotFound
	}

	var (
		finalize bool
		snap     models.Session
	)
	err := p.memory.WithSession(sessionID, func(s *models.Session) error {
		s.Terminated = true
		s.LastActive = time.Now()
		if !s.CallbackSent {
			s.CallbackSent = true
			finalize = true
		}
		snap = snapshot(s)
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}

	if finalize {
		p.finalize(ctx, snap)
	}
	return snap, nil
}

// FinalizeExpired reports sessions the sweeper removed before they
// terminated naturally
func (p *Pipeline) FinalizeExpired(ctx context.Context, session models.Session) {
	if session.CallbackSent || session.TurnCount == 0 {
		return
	}
	p.finalize(ctx, session)
}

// finalize fires the once-per-session termination outputs: callback,
// report persistence, and the terminated event
func (p *Pipeline) finalize(ctx context.Context, session models.Session) {
	report := buildReport(session)

	if p.callback != nil {
		status := "sent"
		if err := p.callback.Send(ctx, buildFinalPayload(session)); err != nil {
			status = "failed"
			p.logger.WithSessionID(session.ID).Error().Err(err).Msg("final callback failed")
		}
		if p.metrics != nil {
			p.metrics.CallbacksTotal.WithLabelValues(status).Inc()
		}
	}

	if p.reports != nil {
		if err := p.reports.SaveReport(ctx, report); err != nil {
			p.logger.WithSessionID(session.ID).Error().Err(err).Msg("failed to persist engagement report")
		}
	}

	if p.events != nil {
		p.events.PublishSessionTerminated(ctx, report)
	}
}

// riskScore blends scam probability, entity volume, and risk flags into a
// [0,1] score. A degraded classification contributes nothing.
func (p *Pipeline) riskScore(classification models.ClassificationResult, bundle *models.IntelligenceBundle) float64 {
	var probability float64
	if !classification.Degraded {
		probability = classification.Probability
	}

	entityTerm := math.Min(float64(bundle.EntityCount())/50.0, 1.0)
	flagTerm := math.Min(0.1*float64(len(bundle.HighRiskFlags)), 1.0)

	score := p.config.Weights.ScamProbability*probability +
		p.config.Weights.EntityVolume*entityTerm +
		p.config.Weights.RiskFlags*flagTerm

	return math.Max(0, math.Min(score, 1))
}

func (p *Pipeline) isTermination(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range p.config.TerminationKeywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// seedHistory pre-populates the window from caller-provided history on
// first contact. Only the window is seeded; turn_count stays authoritative
// to what this pipeline processed.
func (p *Pipeline) seedHistory(s *models.Session, history []models.InboundMessage) {
	window := p.memory.WindowSize()
	for _, msg := range history {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		role := models.RoleScammer
		switch strings.ToLower(msg.Sender) {
		case "honeypot", "assistant", "agent", "victim":
			role = models.RoleHoneypot
		}
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		appendTurn(s, models.Turn{ID: uuid.New(), Role: role, Text: text, Timestamp: ts}, window)
	}
}

func (p *Pipeline) terminatedResult(s *models.Session) models.EngageResult {
	return models.EngageResult{
		SessionID:    s.ID,
		ReplyText:    TerminationReply,
		TurnNumber:   s.TurnCount,
		Terminated:   true,
		ScamDetected: s.ScamDetected,
		RiskScore:    s.LastRiskScore,
		Intelligence: s.Intelligence,
	}
}

func (p *Pipeline) observeStage(stage models.PipelineStage, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveStage(string(stage), time.Since(start))
	}
}

func (p *Pipeline) countSafetyTrigger(verdict models.SafetyVerdict) {
	if p.metrics == nil {
		return
	}
	rule := verdict.Rule
	if verdict.NumericLeak {
		rule = "numeric_leak"
	}
	p.metrics.SafetyTriggers.WithLabelValues(rule).Inc()
}

func (p *Pipeline) countCollaboratorError(name string) {
	if p.metrics != nil {
		p.metrics.CollaboratorErrors.WithLabelValues(name).Inc()
	}
}

// counterpartTexts collects what the other party has said, for the echoed
// digit exemption in the safety filter
func counterpartTexts(window []models.Turn, incoming string) []string {
	texts := make([]string, 0, len(window)+1)
	for _, turn := range window {
		if turn.Role == models.RoleScammer {
			texts = append(texts, turn.Text)
		}
	}
	return append(texts, incoming)
}

// transcriptText joins everything the counterpart said in the window plus
// the incoming message, for transcript-scoped extraction
func transcriptText(window []models.Turn, incoming string) string {
	return strings.Join(counterpartTexts(window, incoming), "\n")
}

func unionStrings(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}

// buildFinalPayload shapes session intelligence for the evaluation endpoint
func buildFinalPayload(session models.Session) models.FinalCallbackPayload {
	return models.FinalCallbackPayload{
		SessionID:              session.ID,
		ScamDetected:           session.ScamDetected,
		TotalMessagesExchanged: session.TurnCount,
		ExtractedIntelligence:  finalIntelligence(session),
		AgentNotes:             agentNotes(session),
	}
}

func buildReport(session models.Session) models.EngagementReport {
	return models.EngagementReport{
		SessionID:    session.ID,
		ScamDetected: session.ScamDetected,
		ScamType:     session.LastScamType,
		RiskScore:    session.LastRiskScore,
		TurnCount:    session.TurnCount,
		Intelligence: finalIntelligence(session),
		AgentNotes:   agentNotes(session),
		CreatedAt:    time.Now(),
	}
}

func finalIntelligence(session models.Session) models.FinalIntelligence {
	intel := session.Intelligence
	return models.FinalIntelligence{
		BankAccounts:       emptyIfNil(intel.ByCategory(models.CategoryBankAccount)),
		UPIIDs:             emptyIfNil(intel.ByCategory(models.CategoryPaymentHandle)),
		PhishingLinks:      emptyIfNil(intel.ByCategory(models.CategoryURL)),
		PhoneNumbers:       emptyIfNil(intel.ByCategory(models.CategoryPhoneNumber)),
		SuspiciousKeywords: emptyIfNil(session.SuspiciousKeywords),
	}
}

// agentNotes summarizes observed tactics for the human reviewing the report
func agentNotes(session models.Session) string {
	var notes []string
	if len(session.Intelligence.ByCategory(models.CategoryPaymentHandle)) > 0 {
		notes = append(notes, "Scammer requested payment via UPI")
	}
	if len(session.Intelligence.ByCategory(models.CategoryPhoneNumber)) > 0 {
		notes = append(notes, "Exchange of phone numbers observed")
	}
	for _, kw := range session.SuspiciousKeywords {
		if kw == "urgent" || kw == "immediately" || kw == "verify" ||
			kw == "confirm" || kw == "blocked" || kw == "suspended" {
			notes = append(notes, "Urgency tactics used")
			break
		}
	}
	if len(notes) == 0 {
		return "No clear payment requests observed; normal engagement"
	}
	return strings.Join(notes, "; ")
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
