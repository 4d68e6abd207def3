package models

import "strings"

// EntityCategory classifies an extracted intelligence entity
type EntityCategory string

const (
	CategoryPaymentHandle  EntityCategory = "payment_handle"
	CategoryPhoneNumber    EntityCategory = "phone_number"
	CategoryBankAccount    EntityCategory = "bank_account"
	CategoryRoutingCode    EntityCategory = "routing_code"
	CategoryURL            EntityCategory = "url"
	CategoryEmail          EntityCategory = "email"
	CategoryPerson         EntityCategory = "person"
	CategoryOrganization   EntityCategory = "organization"
	CategoryLocation       EntityCategory = "location"
	CategoryMonetaryAmount EntityCategory = "monetary_amount"
	CategoryDateTime       EntityCategory = "datetime"
)

// EntitySource records which extraction path produced an entity
type EntitySource string

const (
	SourcePattern EntitySource = "pattern"
	SourceNER     EntitySource = "ner"
	SourceMerged  EntitySource = "merged"
)

// High-risk flag values. Flags are deterministic and idempotent: the same
// bundle always yields the same set, and re-deriving never duplicates.
const (
	FlagMultiplePaymentHandles = "multiple_payment_handles"
	FlagForeignPhoneNumber     = "foreign_phone_number"
	FlagMultiplePhishingLinks  = "multiple_phishing_links"
	FlagLargeMonetaryAmount    = "large_monetary_amount"
)

// ExtractedEntity is a single normalized intelligence item
type ExtractedEntity struct {
	Category   EntityCategory `json:"category"`
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`
	Source     EntitySource   `json:"source"`
}

// IntelligenceBundle aggregates extracted entities plus derived risk flags
type IntelligenceBundle struct {
	Entities      []ExtractedEntity `json:"entities"`
	HighRiskFlags []string          `json:"high_risk_flags,omitempty"`
	DegradedNER   bool              `json:"degraded_ner,omitempty"`
}

// ByCategory returns the values extracted for a single category
func (b *IntelligenceBundle) ByCategory(cat EntityCategory) []string {
	var out []string
	for _, e := range b.Entities {
		if e.Category == cat {
			out = append(out, e.Value)
		}
	}
	return out
}

// EntityCount returns the total number of entities in the bundle
func (b *IntelligenceBundle) EntityCount() int {
	return len(b.Entities)
}

// HasFlag reports whether the bundle carries the given high-risk flag
func (b *IntelligenceBundle) HasFlag(flag string) bool {
	for _, f := range b.HighRiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag appends a high-risk flag if not already present
func (b *IntelligenceBundle) AddFlag(flag string) {
	if !b.HasFlag(flag) {
		b.HighRiskFlags = append(b.HighRiskFlags, flag)
	}
}

// Merge folds another bundle into this one, deduplicating entities by
// category plus normalized value and re-uniting risk flags. Used to
// aggregate per-turn extraction into the session total.
func (b *IntelligenceBundle) Merge(other IntelligenceBundle) {
	seen := make(map[string]struct{}, len(b.Entities))
	for _, e := range b.Entities {
		seen[entityKey(e.Category, e.Value)] = struct{}{}
	}
	for _, e := range other.Entities {
		key := entityKey(e.Category, e.Value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		b.Entities = append(b.Entities, e)
	}
	for _, f := range other.HighRiskFlags {
		b.AddFlag(f)
	}
	if other.DegradedNER {
		b.DegradedNER = true
	}
}

func entityKey(cat EntityCategory, value string) string {
	return string(cat) + "|" + strings.ToLower(value)
}
