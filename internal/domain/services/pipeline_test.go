package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"scambait-lab/internal/domain/models"
	"scambait-lab/pkg/logger"
)

// fakePublisher records pipeline events
type fakePublisher struct {
	mu           sync.Mutex
	intelligence int
	scamDetected int
	terminated   []models.EngagementReport
}

func (f *fakePublisher) PublishIntelligence(ctx context.Context, sessionID string, bundle models.IntelligenceBundle, riskScore float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intelligence++
}

func (f *fakePublisher) PublishScamDetected(ctx context.Context, sessionID string, result models.ClassificationResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scamDetected++
}

func (f *fakePublisher) PublishSessionTerminated(ctx context.Context, report models.EngagementReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, report)
}

// fakeReportStore records saved reports
type fakeReportStore struct {
	mu      sync.Mutex
	reports []models.EngagementReport
}

func (f *fakeReportStore) SaveReport(ctx context.Context, report models.EngagementReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}

type pipelineFixture struct {
	pipeline  *Pipeline
	memory    *Memory
	scorer    *fakeScorer
	completer *fakeCompleter
	publisher *fakePublisher
	reports   *fakeReportStore
}

func newPipelineFixture(t *testing.T, cfg PipelineConfig, callbackURL string) *pipelineFixture {
	t.Helper()
	log := logger.NewDefault()

	scorer := &fakeScorer{
		primary: map[string]float64{"scam": 0.9, "legitimate": 0.1},
		types:   map[string]float64{"phishing scam": 0.8},
	}
	completer := &fakeCompleter{reply: "Oh dear, I am confused. Who did you say is calling?"}
	publisher := &fakePublisher{}
	reports := &fakeReportStore{}

	memory := NewMemory(MemoryConfig{WindowSize: 10}, log)
	classifier := NewClassifier(scorer, nil, ClassifierConfig{}, log)
	generator := NewGenerator(completer, log)
	safety := NewSafetyFilter(SafetyFilterConfig{}, log)
	extractor := NewExtractor(nil, ExtractorConfig{}, log)
	callback := NewCallbackClient(CallbackConfig{Enabled: callbackURL != "", URL: callbackURL}, log)

	if len(cfg.TerminationKeywords) == 0 {
		cfg.TerminationKeywords = []string{"goodbye", "bye", "hang up", "stop calling", "not interested"}
	}

	pipeline := NewPipeline(memory, classifier, generator, safety, extractor, callback, publisher, reports, nil, cfg, log)
	return &pipelineFixture{
		pipeline:  pipeline,
		memory:    memory,
		scorer:    scorer,
		completer: completer,
		publisher: publisher,
		reports:   reports,
	}
}

func engageReq(sessionID, text string) models.EngageRequest {
	return models.EngageRequest{
		SessionID: sessionID,
		Message:   models.InboundMessage{Sender: "scammer", Text: text, Timestamp: time.Now()},
	}
}

func TestEngageTurnValidation(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")

	if _, err := fx.pipeline.EngageTurn(context.Background(), engageReq("", "hello")); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest for missing session id", err)
	}
	if _, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "   ")); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest for blank text", err)
	}
}

func TestEngageTurnFullTurn(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")

	result, err := fx.pipeline.EngageTurn(context.Background(),
		engageReq("s1", "Your account is blocked, pay to fraudster@upi immediately"))
	if err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}

	if result.TurnNumber != 1 {
		t.Fatalf("TurnNumber = %d, want 1", result.TurnNumber)
	}
	if result.ReplyText != fx.completer.reply {
		t.Fatalf("ReplyText = %q", result.ReplyText)
	}
	if !result.ScamDetected {
		t.Fatalf("ScamDetected = false, want true")
	}
	if result.Terminated {
		t.Fatalf("Terminated = true, want false")
	}

	// One payment handle: 0.6*0.9 + 0.2*(1/50) + 0.2*0
	want := 0.6*0.9 + 0.2*(1.0/50.0)
	if math.Abs(result.RiskScore-want) > 1e-9 {
		t.Fatalf("RiskScore = %v, want %v", result.RiskScore, want)
	}

	session, ok := fx.memory.Get("s1")
	if !ok {
		t.Fatalf("session missing")
	}
	if len(session.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, want scammer+honeypot", len(session.Turns))
	}
	if session.Turns[0].Role != models.RoleScammer || session.Turns[1].Role != models.RoleHoneypot {
		t.Fatalf("turn roles = %v, %v", session.Turns[0].Role, session.Turns[1].Role)
	}
	if session.LastScamType != models.ScamTypePhishing {
		t.Fatalf("LastScamType = %q", session.LastScamType)
	}

	fx.publisher.mu.Lock()
	defer fx.publisher.mu.Unlock()
	if fx.publisher.intelligence != 1 || fx.publisher.scamDetected != 1 {
		t.Fatalf("events = %d intelligence, %d scam, want 1 and 1",
			fx.publisher.intelligence, fx.publisher.scamDetected)
	}
}

func TestEngageTurnSafetyReplacement(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")
	fx.completer.reply = "Of course, just tell me the OTP you received"

	result, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "I am from your bank"))
	if err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}
	if result.ReplyText != safetyRules[0].fallback {
		t.Fatalf("ReplyText = %q, want otp fallback", result.ReplyText)
	}
}

func TestEngageTurnCounterpartOTPRequestForcesFallback(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")
	fx.completer.reply = "Oh, one moment, let me find my phone"

	result, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "Share your OTP now"))
	if err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}
	// The generated reply was benign; the counterpart's request decides.
	if result.ReplyText != safetyRules[0].fallback {
		t.Fatalf("ReplyText = %q, want otp fallback", result.ReplyText)
	}
}

func TestEngageTurnGenerationFailureUsesFallback(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")
	fx.completer.err = errors.New("backend down")

	result, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "hello there"))
	if err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}
	if result.ReplyText != GenerationFallback {
		t.Fatalf("ReplyText = %q, want generation fallback", result.ReplyText)
	}
	// The turn still commits.
	if result.TurnNumber != 1 {
		t.Fatalf("TurnNumber = %d, want 1", result.TurnNumber)
	}
}

func TestEngageTurnDegradedClassifierScoresZeroProbability(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")
	fx.scorer.primaryErr = errors.New("backend down")

	result, err := fx.pipeline.EngageTurn(context.Background(),
		engageReq("s1", "pay to fraudster@upi now"))
	if err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}
	if result.ScamDetected {
		t.Fatalf("ScamDetected = true on degraded classification")
	}
	// Probability term drops out: 0.2*(1/50)
	want := 0.2 * (1.0 / 50.0)
	if math.Abs(result.RiskScore-want) > 1e-9 {
		t.Fatalf("RiskScore = %v, want %v", result.RiskScore, want)
	}
}

func TestEngageTurnTerminationKeyword(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")

	result, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "I am hanging up now, goodbye"))
	if err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}
	if !result.Terminated {
		t.Fatalf("Terminated = false, want true")
	}
	if result.ReplyText != TerminationReply {
		t.Fatalf("ReplyText = %q, want termination reply", result.ReplyText)
	}

	fx.reports.mu.Lock()
	saved := len(fx.reports.reports)
	fx.reports.mu.Unlock()
	if saved != 1 {
		t.Fatalf("saved reports = %d, want 1", saved)
	}
	fx.publisher.mu.Lock()
	terminated := len(fx.publisher.terminated)
	fx.publisher.mu.Unlock()
	if terminated != 1 {
		t.Fatalf("terminated events = %d, want 1", terminated)
	}
}

func TestEngageTurnIdempotentAfterTermination(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")

	if _, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "goodbye")); err != nil {
		t.Fatalf("first turn error = %v", err)
	}

	result, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "hello again?"))
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if !result.Terminated {
		t.Fatalf("Terminated = false on goodbye replay")
	}
	if result.ReplyText != TerminationReply {
		t.Fatalf("ReplyText = %q, want termination reply", result.ReplyText)
	}
	if result.TurnNumber != 1 {
		t.Fatalf("TurnNumber = %d, want unchanged 1", result.TurnNumber)
	}

	// Finalization does not fire twice.
	fx.reports.mu.Lock()
	saved := len(fx.reports.reports)
	fx.reports.mu.Unlock()
	if saved != 1 {
		t.Fatalf("saved reports = %d, want 1", saved)
	}

	session, _ := fx.memory.Get("s1")
	if len(session.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, replay must not mutate the session", len(session.Turns))
	}
}

func TestEngageTurnMaxTurnsTerminates(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{MaxTurns: 2}, "")

	for i, text := range []string{"hello", "are you there"} {
		result, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", text))
		if err != nil {
			t.Fatalf("turn %d error = %v", i+1, err)
		}
		if result.Terminated {
			t.Fatalf("turn %d terminated early", i+1)
		}
	}

	result, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "still there?"))
	if err != nil {
		t.Fatalf("third turn error = %v", err)
	}
	if !result.Terminated {
		t.Fatalf("Terminated = false after max turns")
	}
	if result.ReplyText != TerminationReply {
		t.Fatalf("ReplyText = %q, want termination reply", result.ReplyText)
	}
}

func TestEngageTurnSeedsHistory(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")

	req := engageReq("s1", "so can you pay now?")
	req.ConversationHistory = []models.InboundMessage{
		{Sender: "scammer", Text: "Hello, I am from the lottery board"},
		{Sender: "honeypot", Text: "Oh my, a lottery?"},
	}

	if _, err := fx.pipeline.EngageTurn(context.Background(), req); err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}

	session, _ := fx.memory.Get("s1")
	// 2 seeded + scammer + honeypot
	if len(session.Turns) != 4 {
		t.Fatalf("len(Turns) = %d, want 4", len(session.Turns))
	}
	if session.Turns[0].Role != models.RoleScammer || session.Turns[1].Role != models.RoleHoneypot {
		t.Fatalf("seeded roles = %v, %v", session.Turns[0].Role, session.Turns[1].Role)
	}
	// Seeding does not count processed turns.
	if session.TurnCount != 1 {
		t.Fatalf("TurnCount = %d, want 1", session.TurnCount)
	}
}

func TestTerminateSession(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")

	if _, err := fx.pipeline.TerminateSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}

	if _, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "hello")); err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}

	session, err := fx.pipeline.TerminateSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("TerminateSession() error = %v", err)
	}
	if !session.Terminated {
		t.Fatalf("Terminated = false")
	}

	// Repeated termination stays idempotent for finalization.
	if _, err := fx.pipeline.TerminateSession(context.Background(), "s1"); err != nil {
		t.Fatalf("second TerminateSession() error = %v", err)
	}
	fx.reports.mu.Lock()
	saved := len(fx.reports.reports)
	fx.reports.mu.Unlock()
	if saved != 1 {
		t.Fatalf("saved reports = %d, want 1", saved)
	}
}

func TestFinalizeExpired(t *testing.T) {
	fx := newPipelineFixture(t, PipelineConfig{}, "")

	// Empty sessions produce no report.
	fx.pipeline.FinalizeExpired(context.Background(), models.Session{ID: "empty"})

	fx.pipeline.FinalizeExpired(context.Background(), models.Session{
		ID:           "expired",
		TurnCount:    3,
		ScamDetected: true,
	})

	// Already finalized sessions are skipped.
	fx.pipeline.FinalizeExpired(context.Background(), models.Session{
		ID:           "done",
		TurnCount:    5,
		CallbackSent: true,
	})

	fx.reports.mu.Lock()
	defer fx.reports.mu.Unlock()
	if len(fx.reports.reports) != 1 || fx.reports.reports[0].SessionID != "expired" {
		t.Fatalf("reports = %+v, want only the expired session", fx.reports.reports)
	}
}

func TestFinalCallbackPayload(t *testing.T) {
	var (
		mu      sync.Mutex
		payload map[string]interface{}
		hits    int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		hits++
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fx := newPipelineFixture(t, PipelineConfig{}, server.URL)

	if _, err := fx.pipeline.EngageTurn(context.Background(),
		engageReq("s1", "pay to fraudster@upi or call 9876543210, this is urgent")); err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}
	if _, err := fx.pipeline.EngageTurn(context.Background(), engageReq("s1", "goodbye")); err != nil {
		t.Fatalf("EngageTurn() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Fatalf("callback hits = %d, want 1", hits)
	}
	if payload["sessionId"] != "s1" {
		t.Fatalf("sessionId = %v", payload["sessionId"])
	}
	if payload["scamDetected"] != true {
		t.Fatalf("scamDetected = %v", payload["scamDetected"])
	}
	if payload["totalMessagesExchanged"] != float64(2) {
		t.Fatalf("totalMessagesExchanged = %v", payload["totalMessagesExchanged"])
	}
	intel, ok := payload["extractedIntelligence"].(map[string]interface{})
	if !ok {
		t.Fatalf("extractedIntelligence missing: %v", payload)
	}
	for _, key := range []string{"bankAccounts", "upiIds", "phishingLinks", "phoneNumbers", "suspiciousKeywords"} {
		if _, ok := intel[key]; !ok {
			t.Fatalf("extractedIntelligence missing %q: %v", key, intel)
		}
	}
	if upis, ok := intel["upiIds"].([]interface{}); !ok || len(upis) != 1 || upis[0] != "fraudster@upi" {
		t.Fatalf("upiIds = %v", intel["upiIds"])
	}
	if _, ok := payload["agentNotes"].(string); !ok {
		t.Fatalf("agentNotes missing: %v", payload)
	}
}
