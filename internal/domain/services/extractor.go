package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/domain/services/ai"
	"scambait-lab/pkg/logger"
)

// ErrTranscriptTooLong is returned when extraction input exceeds the cap
var ErrTranscriptTooLong = errors.New("transcript too long")

// MaxTranscriptLength caps extraction input size
const MaxTranscriptLength = 50000

const (
	patternConfidence = 0.95
	accountConfidence = 0.7

	// Rupee amounts at or above this in a monetary mention get flagged
	largeAmountThreshold = 50000
)

var (
	paymentHandlePattern = regexp.MustCompile(`\b[a-zA-Z0-9._-]+@[a-zA-Z0-9]+\b`)
	phonePatternIN       = regexp.MustCompile(`\b(\+91[-\s]?)?[6-9]\d{9}\b`)
	phonePatternIntl     = regexp.MustCompile(`\+\d{1,3}[-\s]?\d{6,14}\b`)
	landlinePattern      = regexp.MustCompile(`\b0\d{2,4}[-\s]?\d{6,8}\b`)
	urlPattern           = regexp.MustCompile(`https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_+.~#?&/=]*)`)
	emailPattern         = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	routingCodePattern   = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)
	// Accounts may be quoted with a routing-style letter prefix glued on;
	// only the digit group is the account number.
	bankAccountPattern = regexp.MustCompile(`\b[A-Z]{0,4}(\d{9,18})\b`)

	phoneSeparators = regexp.MustCompile(`[\s-]`)
	digitRuns       = regexp.MustCompile(`\d+`)
)

// bankContextKeywords gate bare digit runs: a 9-18 digit number only counts
// as an account when banking language appears nearby.
var bankContextKeywords = []string{"account", "ifsc", "bank", "branch", "transfer"}

const bankContextWindow = 40

// suspiciousKeywords is the fixed scan list reported in the final payload
var suspiciousKeywords = []string{
	"urgent", "verify", "blocked", "suspended", "otp", "bank", "account",
	"payment", "refund", "prize", "winner", "confirm", "immediately",
}

// nerGroupCategories maps token-classifier groups onto entity categories
var nerGroupCategories = map[string]models.EntityCategory{
	"PER":    models.CategoryPerson,
	"PERSON": models.CategoryPerson,
	"ORG":    models.CategoryOrganization,
	"GPE":    models.CategoryLocation,
	"LOC":    models.CategoryLocation,
	"MONEY":  models.CategoryMonetaryAmount,
	"DATE":   models.CategoryDateTime,
	"TIME":   models.CategoryDateTime,
}

// ExtractorConfig holds intelligence extractor configuration
type ExtractorConfig struct {
	MinConfidence float64
}

// Extractor pulls structured intelligence out of conversation text by
// combining the regex battery with NER. NER is best-effort: when the
// collaborator is down the pattern results still stand.
type Extractor struct {
	ner    ai.TokenClassifier
	config ExtractorConfig
	logger *logger.Logger
}

// NewExtractor creates a new intelligence extractor. ner may be nil for
// pattern-only operation.
func NewExtractor(ner ai.TokenClassifier, cfg ExtractorConfig, log *logger.Logger) *Extractor {
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.5
	}
	return &Extractor{
		ner:    ner,
		config: cfg,
		logger: log.WithComponent("extractor"),
	}
}

// Extract runs the full battery over text and returns the deduplicated
// bundle with high-risk flags derived.
func (e *Extractor) Extract(ctx context.Context, text string) (models.IntelligenceBundle, error) {
	if strings.TrimSpace(text) == "" {
		return models.IntelligenceBundle{}, ErrEmptyText
	}
	if len(text) > MaxTranscriptLength {
		return models.IntelligenceBundle{}, fmt.Errorf("%w: %d chars", ErrTranscriptTooLong, len(text))
	}

	var bundle models.IntelligenceBundle
	bundle.Merge(e.extractPatterns(text))

	if e.ner != nil {
		nerBundle, err := e.extractNER(ctx, text)
		if err != nil {
			e.logger.Warn().Err(err).Msg("NER unavailable, continuing with pattern results")
			bundle.DegradedNER = true
		} else {
			bundle.Merge(nerBundle)
		}
	}

	deriveRiskFlags(&bundle)
	return bundle, nil
}

// ExtractBatch extracts from each text independently, preserving order
func (e *Extractor) ExtractBatch(ctx context.Context, texts []string) ([]models.IntelligenceBundle, error) {
	results := make([]models.IntelligenceBundle, len(texts))
	for i, text := range texts {
		bundle, err := e.Extract(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("extraction failed at index %d: %w", i, err)
		}
		results[i] = bundle
	}
	return results, nil
}

// extractPatterns runs the regex battery. Phone spans are collected first
// so the account scan never reclassifies a phone number as an account.
func (e *Extractor) extractPatterns(text string) models.IntelligenceBundle {
	var bundle models.IntelligenceBundle

	add := func(cat models.EntityCategory, value string, conf float64) {
		bundle.Merge(models.IntelligenceBundle{Entities: []models.ExtractedEntity{{
			Category:   cat,
			Value:      value,
			Confidence: conf,
			Source:     models.SourcePattern,
		}}})
	}

	for _, m := range paymentHandlePattern.FindAllString(text, -1) {
		add(models.CategoryPaymentHandle, m, patternConfidence)
	}

	var phoneSpans [][]int
	for _, pattern := range []*regexp.Regexp{phonePatternIN, phonePatternIntl, landlinePattern} {
		for _, span := range pattern.FindAllStringIndex(text, -1) {
			phoneSpans = append(phoneSpans, span)
			add(models.CategoryPhoneNumber, normalizePhone(text[span[0]:span[1]]), patternConfidence)
		}
	}

	for _, m := range urlPattern.FindAllString(text, -1) {
		add(models.CategoryURL, m, patternConfidence)
	}
	for _, m := range emailPattern.FindAllString(text, -1) {
		add(models.CategoryEmail, m, patternConfidence)
	}
	for _, m := range routingCodePattern.FindAllString(text, -1) {
		add(models.CategoryRoutingCode, m, patternConfidence)
	}

	for _, m := range bankAccountPattern.FindAllStringSubmatchIndex(text, -1) {
		span := []int{m[2], m[3]}
		if overlapsAny(span, phoneSpans) {
			continue
		}
		if !hasBankContext(text, span) {
			continue
		}
		add(models.CategoryBankAccount, text[span[0]:span[1]], accountConfidence)
	}

	return bundle
}

// extractNER maps token-classifier spans onto entity categories, dropping
// groups outside the mapping and spans below the confidence floor
func (e *Extractor) extractNER(ctx context.Context, text string) (models.IntelligenceBundle, error) {
	spans, err := e.ner.RecognizeEntities(ctx, text)
	if err != nil {
		return models.IntelligenceBundle{}, err
	}

	var bundle models.IntelligenceBundle
	for _, span := range spans {
		cat, ok := nerGroupCategories[strings.ToUpper(span.Group)]
		if !ok {
			continue
		}
		if span.Score < e.config.MinConfidence {
			continue
		}
		word := strings.TrimSpace(span.Word)
		if word == "" {
			continue
		}
		bundle.Merge(models.IntelligenceBundle{Entities: []models.ExtractedEntity{{
			Category:   cat,
			Value:      word,
			Confidence: span.Score,
			Source:     models.SourceNER,
		}}})
	}
	return bundle, nil
}

// SuspiciousKeywords scans text for the fixed keyword list
func (e *Extractor) SuspiciousKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range suspiciousKeywords {
		if containsWord(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// deriveRiskFlags computes the high-risk flag set from the bundle contents.
// Deterministic and idempotent: re-deriving on a merged bundle only adds.
func deriveRiskFlags(b *models.IntelligenceBundle) {
	handles := distinctLower(b.ByCategory(models.CategoryPaymentHandle))
	if len(handles) > 1 {
		b.AddFlag(models.FlagMultiplePaymentHandles)
	}

	for _, phone := range b.ByCategory(models.CategoryPhoneNumber) {
		if strings.HasPrefix(phone, "+") && !strings.HasPrefix(phone, "+91") {
			b.AddFlag(models.FlagForeignPhoneNumber)
			break
		}
	}

	urls := distinctLower(b.ByCategory(models.CategoryURL))
	if len(urls) > 1 {
		b.AddFlag(models.FlagMultiplePhishingLinks)
	}

	for _, amount := range b.ByCategory(models.CategoryMonetaryAmount) {
		if isLargeAmount(amount) {
			b.AddFlag(models.FlagLargeMonetaryAmount)
			break
		}
	}
}

// normalizePhone strips separators and canonicalizes domestic numbers
// to the +91 form
func normalizePhone(phone string) string {
	normalized := phoneSeparators.ReplaceAllString(phone, "")
	if strings.HasPrefix(normalized, "+91") {
		return normalized
	}
	if len(normalized) == 10 && strings.ContainsRune("6789", rune(normalized[0])) {
		return "+91" + normalized
	}
	return normalized
}

func hasBankContext(text string, span []int) bool {
	start := span[0] - bankContextWindow
	if start < 0 {
		start = 0
	}
	end := span[1] + bankContextWindow
	if end > len(text) {
		end = len(text)
	}
	local := strings.ToLower(text[start:end])
	for _, kw := range bankContextKeywords {
		if strings.Contains(local, kw) {
			return true
		}
	}
	return false
}

func overlapsAny(span []int, spans [][]int) bool {
	for _, other := range spans {
		if span[0] < other[1] && other[0] < span[1] {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func distinctLower(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// isLargeAmount reports whether a monetary mention carries a number at or
// above the flag threshold
func isLargeAmount(amount string) bool {
	cleaned := strings.ReplaceAll(amount, ",", "")
	for _, run := range digitRuns.FindAllString(cleaned, -1) {
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			continue
		}
		if n >= largeAmountThreshold {
			return true
		}
	}
	return false
}
