package services

import (
	"regexp"

	"scambait-lab/internal/domain/models"
	"scambait-lab/pkg/logger"
)

// safetyRule pairs a sensitive-topic pattern with the canned utterance that
// replaces the whole reply when it matches
type safetyRule struct {
	name     string
	pattern  *regexp.Regexp
	fallback string
}

// Rules are ordered; the first match wins.
var safetyRules = []safetyRule{
	{
		name:     "otp",
		pattern:  regexp.MustCompile(`(?i)\b(OTP|one\s*time\s*password|verification\s*code)\b`),
		fallback: "I'm not sure about that. Could you tell me more about your organization?",
	},
	{
		name:     "bank_account",
		pattern:  regexp.MustCompile(`(?i)\b(bank\s*account|account\s*number|routing\s*number|IFSC)\b`),
		fallback: "I don't remember that right now. Could you explain the process again?",
	},
	{
		name:     "password",
		pattern:  regexp.MustCompile(`(?i)\b(password|PIN|passcode)\b`),
		fallback: "I'm not comfortable sharing that. Can you tell me more about who you are?",
	},
	{
		name:     "card_details",
		pattern:  regexp.MustCompile(`(?i)\b(CVV|CVC|card\s*number|credit\s*card|debit\s*card|expiry|expiration)\b`),
		fallback: "I'm not comfortable with card details. Could you tell me more about your organization?",
	},
	{
		name:     "government_id",
		pattern:  regexp.MustCompile(`(?i)\b(SSN|social\s*security|PAN|Aadhaar|Aadhar|ID\s*number|passport|driver'?s\s*license)\b`),
		fallback: "I don't have those details handy. Can you explain what this is for?",
	},
	{
		name:     "home_address",
		pattern:  regexp.MustCompile(`(?i)\b(address|home\s*address|mailing\s*address|residential\s*address)\b`),
		fallback: "I'd rather not share my address. Could you tell me more about your company?",
	},
	{
		name:     "email",
		pattern:  regexp.MustCompile(`(?i)\b(email|e-mail)\b`),
		fallback: "I'm not sure about my email right now. Could you explain the process again?",
	},
	{
		name:     "kyc_document",
		pattern:  regexp.MustCompile(`(?i)\b(KYC|identity\s*document|ID\s*proof|verification\s*document)\b`),
		fallback: "I'm not comfortable sharing documents. Can you tell me more about your organization?",
	},
}

var numericLeakPattern = regexp.MustCompile(`\b\d{9,19}\b`)

// requestCues mark a counterpart message as asking the honeypot for
// something, as opposed to merely mentioning a sensitive topic. A scammer
// saying "your bank account will be blocked" must not trip a rule; "share
// your OTP" must.
var requestCues = regexp.MustCompile(`(?i)\b(share|tell|give|send|provide|enter|type|repeat|read\s*(?:out|me)|need\s+your|what\s*is|what'?s)\b`)

// NumericLeakFallback replaces replies that would leak long digit runs
const NumericLeakFallback = "I don't have those numbers. Could you explain the process again?"

// SafetyFilterConfig holds safety filter configuration
type SafetyFilterConfig struct {
	// ExemptEchoedDigits allows digit runs the counterpart already sent;
	// the honeypot never minted them, so repeating them leaks nothing.
	ExemptEchoedDigits bool
}

// SafetyFilter screens generated replies for sensitive-information requests
// and numeric leaks. It is stateless: the verdict is advisory, the returned
// text is authoritative.
type SafetyFilter struct {
	config SafetyFilterConfig
	logger *logger.Logger
}

// NewSafetyFilter creates a new safety filter
func NewSafetyFilter(cfg SafetyFilterConfig, log *logger.Logger) *SafetyFilter {
	return &SafetyFilter{
		config: cfg,
		logger: log.WithComponent("safety"),
	}
}

// Filter screens candidate and returns the final reply text. counterpartTexts
// carries what the other party said, most recent last. Rules fire on the
// candidate itself and on sensitive-information requests in the latest
// counterpart message, so a benign generated reply to an OTP request still
// gets the OTP fallback.
func (f *SafetyFilter) Filter(candidate string, counterpartTexts []string) (string, models.SafetyVerdict) {
	var latest string
	if len(counterpartTexts) > 0 {
		latest = counterpartTexts[len(counterpartTexts)-1]
	}
	requested := latest != "" && requestCues.MatchString(latest)

	for _, rule := range safetyRules {
		if rule.pattern.MatchString(candidate) || (requested && rule.pattern.MatchString(latest)) {
			f.logger.Warn().Str("rule", rule.name).Msg("safety rule triggered, replacing reply")
			return rule.fallback, models.SafetyVerdict{Triggered: true, Rule: rule.name}
		}
	}

	if leak := f.findNumericLeak(candidate, counterpartTexts); leak {
		f.logger.Warn().Msg("numeric leak detected, replacing reply")
		return NumericLeakFallback, models.SafetyVerdict{Triggered: true, NumericLeak: true}
	}

	return candidate, models.SafetyVerdict{}
}

func (f *SafetyFilter) findNumericLeak(candidate string, counterpartTexts []string) bool {
	matches := numericLeakPattern.FindAllString(candidate, -1)
	if len(matches) == 0 {
		return false
	}
	if !f.config.ExemptEchoedDigits {
		return true
	}

	echoed := make(map[string]struct{})
	for _, text := range counterpartTexts {
		for _, run := range numericLeakPattern.FindAllString(text, -1) {
			echoed[run] = struct{}{}
		}
	}
	for _, match := range matches {
		if _, ok := echoed[match]; !ok {
			return true
		}
	}
	return false
}
