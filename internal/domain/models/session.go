package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a conversation turn
type Role string

const (
	RoleScammer  Role = "scammer"
	RoleHoneypot Role = "honeypot"
)

// Turn represents a single message in an engagement conversation
type Turn struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the per-engagement conversation state. The memory store
// serializes all mutation through a per-session lock; callers receive
// snapshots, never the live struct.
type Session struct {
	ID         string `json:"id"`
	Turns      []Turn `json:"turns"` // bounded window, oldest first
	TurnCount  int    `json:"turn_count"`
	Terminated bool   `json:"terminated"`

	// Aggregated over the whole session, not just the window
	Intelligence       IntelligenceBundle `json:"intelligence"`
	SuspiciousKeywords []string           `json:"suspicious_keywords,omitempty"`
	ScamDetected       bool               `json:"scam_detected"`
	LastScamType       ScamType           `json:"last_scam_type,omitempty"`
	LastRiskScore      float64            `json:"last_risk_score"`
	CallbackSent       bool               `json:"-"`

	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// SessionSummary is the read model returned by the sessions API
type SessionSummary struct {
	ID                 string             `json:"id"`
	TurnCount          int                `json:"turn_count"`
	WindowSize         int                `json:"window_size"`
	Terminated         bool               `json:"terminated"`
	ScamDetected       bool               `json:"scam_detected"`
	ScamType           ScamType           `json:"scam_type,omitempty"`
	RiskScore          float64            `json:"risk_score"`
	Intelligence       IntelligenceBundle `json:"intelligence"`
	SuspiciousKeywords []string           `json:"suspicious_keywords,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	LastActive         time.Time          `json:"last_active"`
}

// Summary builds the API read model from a session snapshot
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:                 s.ID,
		TurnCount:          s.TurnCount,
		WindowSize:         len(s.Turns),
		Terminated:         s.Terminated,
		ScamDetected:       s.ScamDetected,
		ScamType:           s.LastScamType,
		RiskScore:          s.LastRiskScore,
		Intelligence:       s.Intelligence,
		SuspiciousKeywords: s.SuspiciousKeywords,
		CreatedAt:          s.CreatedAt,
		LastActive:         s.LastActive,
	}
}
