package streaming

import (
	"time"

	"github.com/google/uuid"

	"scambait-lab/internal/domain/models"
)

// EventType represents the type of engagement event
type EventType string

const (
	EventTypeIntelligence      EventType = "intelligence_update"
	EventTypeScamDetected      EventType = "scam_detected"
	EventTypeSessionTerminated EventType = "session_terminated"
)

// EngagementEvent is a real-time update from the engagement pipeline
type EngagementEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`

	// Intelligence update
	RiskScore    float64                    `json:"risk_score,omitempty"`
	Intelligence *models.IntelligenceBundle `json:"intelligence,omitempty"`

	// Classification outcome
	Classification *models.ClassificationResult `json:"classification,omitempty"`

	// Session termination
	Report *models.EngagementReport `json:"report,omitempty"`
}

// NewIntelligenceEvent builds an intelligence update event
func NewIntelligenceEvent(sessionID string, bundle models.IntelligenceBundle, riskScore float64) *EngagementEvent {
	return &EngagementEvent{
		ID:           uuid.New().String(),
		Type:         EventTypeIntelligence,
		Timestamp:    time.Now(),
		SessionID:    sessionID,
		RiskScore:    riskScore,
		Intelligence: &bundle,
	}
}

// NewScamDetectedEvent builds a scam detection event
func NewScamDetectedEvent(sessionID string, result models.ClassificationResult) *EngagementEvent {
	return &EngagementEvent{
		ID:             uuid.New().String(),
		Type:           EventTypeScamDetected,
		Timestamp:      time.Now(),
		SessionID:      sessionID,
		Classification: &result,
	}
}

// NewSessionTerminatedEvent builds a termination event carrying the report
func NewSessionTerminatedEvent(report models.EngagementReport) *EngagementEvent {
	return &EngagementEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeSessionTerminated,
		Timestamp: time.Now(),
		SessionID: report.SessionID,
		RiskScore: report.RiskScore,
		Report:    &report,
	}
}

// Subscription represents a client's subscription preferences
type Subscription struct {
	// Filter by session ids (empty = all)
	SessionIDs []string `json:"session_ids,omitempty"`

	// Filter by event types (empty = all)
	Types []EventType `json:"types,omitempty"`

	// Minimum risk score for intelligence events
	MinRiskScore float64 `json:"min_risk_score,omitempty"`

	// Only sessions where a scam was confirmed
	ScamOnly bool `json:"scam_only,omitempty"`
}

// Matches checks if an event matches the subscription filters
func (s *Subscription) Matches(event *EngagementEvent) bool {
	if len(s.SessionIDs) > 0 {
		found := false
		for _, id := range s.SessionIDs {
			if id == event.SessionID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(s.Types) > 0 {
		found := false
		for _, t := range s.Types {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.MinRiskScore > 0 && event.Type == EventTypeIntelligence && event.RiskScore < s.MinRiskScore {
		return false
	}

	if s.ScamOnly {
		switch {
		case event.Type == EventTypeScamDetected:
		case event.Report != nil && event.Report.ScamDetected:
		default:
			return false
		}
	}

	return true
}
