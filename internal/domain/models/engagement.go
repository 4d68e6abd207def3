package models

import "time"

// PipelineStage names the processing stages of a single engagement turn
type PipelineStage string

const (
	StageReceived   PipelineStage = "received"
	StageClassified PipelineStage = "classified"
	StageResponded  PipelineStage = "responded"
	StageFiltered   PipelineStage = "filtered"
	StageExtracted  PipelineStage = "extracted"
	StageScored     PipelineStage = "scored"
	StageDone       PipelineStage = "done"
)

// InboundMessage is one counterpart message as delivered by the caller
type InboundMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// EngageRequest is the per-turn inbound payload
type EngageRequest struct {
	SessionID           string           `json:"session_id"`
	Message             InboundMessage   `json:"message"`
	ConversationHistory []InboundMessage `json:"conversation_history,omitempty"`
}

// EngageResult is the per-turn outbound payload
type EngageResult struct {
	SessionID    string             `json:"session_id"`
	ReplyText    string             `json:"reply_text"`
	TurnNumber   int                `json:"turn_number"`
	Terminated   bool               `json:"terminated"`
	ScamDetected bool               `json:"scam_detected"`
	RiskScore    float64            `json:"risk_score"`
	Intelligence IntelligenceBundle `json:"extracted_intelligence"`
}

// SafetyVerdict records what the safety filter did to a candidate reply
type SafetyVerdict struct {
	Triggered   bool   `json:"triggered"`
	Rule        string `json:"rule,omitempty"`
	NumericLeak bool   `json:"numeric_leak,omitempty"`
}

// FinalIntelligence is the aggregate shape reported when a session ends
type FinalIntelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// FinalCallbackPayload is POSTed to the evaluation endpoint once per session
type FinalCallbackPayload struct {
	SessionID              string            `json:"sessionId"`
	ScamDetected           bool              `json:"scamDetected"`
	TotalMessagesExchanged int               `json:"totalMessagesExchanged"`
	ExtractedIntelligence  FinalIntelligence `json:"extractedIntelligence"`
	AgentNotes             string            `json:"agentNotes"`
}

// EngagementReport is the persisted record of a finished session
type EngagementReport struct {
	SessionID    string            `json:"session_id" db:"session_id"`
	ScamDetected bool              `json:"scam_detected" db:"scam_detected"`
	ScamType     ScamType          `json:"scam_type,omitempty" db:"scam_type"`
	RiskScore    float64           `json:"risk_score" db:"risk_score"`
	TurnCount    int               `json:"turn_count" db:"turn_count"`
	Intelligence FinalIntelligence `json:"intelligence" db:"intelligence"`
	AgentNotes   string            `json:"agent_notes" db:"agent_notes"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}
