package models

// ScamType categorizes a scam-positive message
type ScamType string

const (
	ScamTypePhishing        ScamType = "phishing scam"
	ScamTypeTechSupport     ScamType = "tech support scam"
	ScamTypeLottery         ScamType = "lottery scam"
	ScamTypeInvestmentFraud ScamType = "investment fraud"
	ScamTypeRomance         ScamType = "romance scam"
	ScamTypeImpersonation   ScamType = "impersonation scam"
	ScamTypeRefund          ScamType = "refund scam"
	ScamTypeJob             ScamType = "job scam"
	ScamTypeOther           ScamType = "other scam"
)

// ScamTypes lists every category the second classification stage scores
var ScamTypes = []ScamType{
	ScamTypePhishing,
	ScamTypeTechSupport,
	ScamTypeLottery,
	ScamTypeInvestmentFraud,
	ScamTypeRomance,
	ScamTypeImpersonation,
	ScamTypeRefund,
	ScamTypeJob,
	ScamTypeOther,
}

// ClassificationResult is the outcome of the two-stage scam classification.
// Degraded marks results produced while the model backend was unavailable;
// such results carry no verdict and must not contribute to risk scoring.
type ClassificationResult struct {
	IsScam         bool               `json:"is_scam"`
	Probability    float64            `json:"probability"`
	ScamType       ScamType           `json:"scam_type,omitempty"`
	TypeConfidence float64            `json:"type_confidence,omitempty"`
	TypeScores     map[string]float64 `json:"type_scores,omitempty"`
	Degraded       bool               `json:"degraded,omitempty"`
}
