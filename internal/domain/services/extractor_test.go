package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/domain/services/ai"
	"scambait-lab/pkg/logger"
)

// fakeNER returns canned token-classifier spans
type fakeNER struct {
	entities []ai.NEREntity
	err      error
}

func (f *fakeNER) RecognizeEntities(ctx context.Context, text string) ([]ai.NEREntity, error) {
	return f.entities, f.err
}

func newTestExtractor(ner ai.TokenClassifier) *Extractor {
	return NewExtractor(ner, ExtractorConfig{}, logger.NewDefault())
}

func values(b models.IntelligenceBundle, cat models.EntityCategory) []string {
	out := b.ByCategory(cat)
	sort.Strings(out)
	return out
}

func TestExtractPaymentHandle(t *testing.T) {
	e := newTestExtractor(nil)

	bundle, err := e.Extract(context.Background(), "Send the money to fraudster@upi right away")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	got := values(bundle, models.CategoryPaymentHandle)
	if !reflect.DeepEqual(got, []string{"fraudster@upi"}) {
		t.Fatalf("payment handles = %v", got)
	}
}

func TestExtractPhoneNormalization(t *testing.T) {
	e := newTestExtractor(nil)

	tests := []struct {
		text string
		want string
	}{
		{"Call me on 9876543210 today", "+919876543210"},
		{"Call me on +91 9876543210 today", "+919876543210"},
		{"Call me on +91-9876543210 today", "+919876543210"},
		{"Our UK office is at +44 2071234567", "+442071234567"},
	}
	for _, tt := range tests {
		bundle, err := e.Extract(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("Extract(%q) error = %v", tt.text, err)
		}
		got := bundle.ByCategory(models.CategoryPhoneNumber)
		if len(got) != 1 || got[0] != tt.want {
			t.Fatalf("Extract(%q) phones = %v, want [%s]", tt.text, got, tt.want)
		}
	}
}

func TestExtractForeignPhoneFlag(t *testing.T) {
	e := newTestExtractor(nil)

	bundle, err := e.Extract(context.Background(), "Reach our agent at +44 2071234567")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !bundle.HasFlag(models.FlagForeignPhoneNumber) {
		t.Fatalf("flags = %v, want foreign_phone_number", bundle.HighRiskFlags)
	}

	bundle, err = e.Extract(context.Background(), "Reach me at +91 9876543210")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if bundle.HasFlag(models.FlagForeignPhoneNumber) {
		t.Fatalf("domestic number flagged foreign: %v", bundle.HighRiskFlags)
	}
}

func TestExtractURLsAndFlag(t *testing.T) {
	e := newTestExtractor(nil)

	bundle, err := e.Extract(context.Background(),
		"Click https://secure-verify.example.com/login or http://kyc-update.example.net now")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	urls := bundle.ByCategory(models.CategoryURL)
	if len(urls) != 2 {
		t.Fatalf("urls = %v, want 2", urls)
	}
	if !bundle.HasFlag(models.FlagMultiplePhishingLinks) {
		t.Fatalf("flags = %v, want multiple_phishing_links", bundle.HighRiskFlags)
	}
}

func TestExtractEmail(t *testing.T) {
	e := newTestExtractor(nil)

	bundle, err := e.Extract(context.Background(), "Forward the form to support@refund-desk.example.com")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	emails := bundle.ByCategory(models.CategoryEmail)
	if len(emails) != 1 || emails[0] != "support@refund-desk.example.com" {
		t.Fatalf("emails = %v", emails)
	}
}

func TestExtractRoutingCode(t *testing.T) {
	e := newTestExtractor(nil)

	bundle, err := e.Extract(context.Background(), "Use branch code HDFC0001234 for the transfer")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	codes := bundle.ByCategory(models.CategoryRoutingCode)
	if len(codes) != 1 || codes[0] != "HDFC0001234" {
		t.Fatalf("routing codes = %v", codes)
	}
}

func TestExtractBankAccountNeedsContext(t *testing.T) {
	e := newTestExtractor(nil)

	// Banking language nearby: the digit run counts as an account.
	bundle, err := e.Extract(context.Background(), "Transfer the fee to account 123456789012 today")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	accounts := bundle.ByCategory(models.CategoryBankAccount)
	if len(accounts) != 1 || accounts[0] != "123456789012" {
		t.Fatalf("accounts = %v", accounts)
	}

	// No banking language: the bare digit run is ignored.
	bundle, err = e.Extract(context.Background(), "Your tracking id is 123456789012, keep it safe")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := bundle.ByCategory(models.CategoryBankAccount); len(got) != 0 {
		t.Fatalf("accounts = %v, want none without bank context", got)
	}
}

func TestExtractAccountWithRoutingPrefix(t *testing.T) {
	e := newTestExtractor(nil)

	bundle, err := e.Extract(context.Background(), "Transfer 50000 to account HDFC1234567890 branch XYZ")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	accounts := bundle.ByCategory(models.CategoryBankAccount)
	if len(accounts) != 1 || accounts[0] != "1234567890" {
		t.Fatalf("accounts = %v, want [1234567890] with the letter prefix stripped", accounts)
	}
	for _, entity := range bundle.Entities {
		if entity.Category == models.CategoryBankAccount && entity.Confidence != accountConfidence {
			t.Fatalf("account confidence = %v, want %v", entity.Confidence, accountConfidence)
		}
	}
}

func TestExtractPhoneNotReclassifiedAsAccount(t *testing.T) {
	e := newTestExtractor(nil)

	// Ten digits with bank language nearby must stay a phone number.
	bundle, err := e.Extract(context.Background(), "Call the bank helpline on 9876543210 now")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := bundle.ByCategory(models.CategoryBankAccount); len(got) != 0 {
		t.Fatalf("accounts = %v, want none for a phone number", got)
	}
	if got := bundle.ByCategory(models.CategoryPhoneNumber); len(got) != 1 {
		t.Fatalf("phones = %v, want 1", got)
	}
}

func TestExtractMultiplePaymentHandlesFlag(t *testing.T) {
	e := newTestExtractor(nil)

	bundle, err := e.Extract(context.Background(), "Pay to first@upi or second@paytm, whichever works")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !bundle.HasFlag(models.FlagMultiplePaymentHandles) {
		t.Fatalf("flags = %v, want multiple_payment_handles", bundle.HighRiskFlags)
	}
}

func TestExtractNERMerge(t *testing.T) {
	ner := &fakeNER{entities: []ai.NEREntity{
		{Group: "PER", Word: "Rajesh Kumar", Score: 0.93},
		{Group: "ORG", Word: "State Bank", Score: 0.88},
		{Group: "MONEY", Word: "Rs 75,000", Score: 0.9},
		{Group: "LOC", Word: "Mumbai", Score: 0.2}, // below confidence floor
		{Group: "MISC", Word: "whatever", Score: 0.99},
	}}
	e := newTestExtractor(ner)

	bundle, err := e.Extract(context.Background(), "I am Rajesh Kumar from State Bank, pay Rs 75,000")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got := bundle.ByCategory(models.CategoryPerson); len(got) != 1 || got[0] != "Rajesh Kumar" {
		t.Fatalf("persons = %v", got)
	}
	if got := bundle.ByCategory(models.CategoryOrganization); len(got) != 1 || got[0] != "State Bank" {
		t.Fatalf("orgs = %v", got)
	}
	if got := bundle.ByCategory(models.CategoryLocation); len(got) != 0 {
		t.Fatalf("locations = %v, want low-confidence span dropped", got)
	}
	if bundle.DegradedNER {
		t.Fatalf("DegradedNER = true, want false")
	}
	if !bundle.HasFlag(models.FlagLargeMonetaryAmount) {
		t.Fatalf("flags = %v, want large_monetary_amount", bundle.HighRiskFlags)
	}
}

func TestExtractNERFailureDegrades(t *testing.T) {
	ner := &fakeNER{err: errors.New("backend down")}
	e := newTestExtractor(ner)

	bundle, err := e.Extract(context.Background(), "Pay to fraudster@upi now")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !bundle.DegradedNER {
		t.Fatalf("DegradedNER = false, want true")
	}
	// Pattern results still stand.
	if got := bundle.ByCategory(models.CategoryPaymentHandle); len(got) != 1 {
		t.Fatalf("payment handles = %v, want pattern result", got)
	}
}

func TestExtractInputValidation(t *testing.T) {
	e := newTestExtractor(nil)

	if _, err := e.Extract(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Extract(blank) error = %v, want ErrEmptyText", err)
	}

	long := strings.Repeat("a", MaxTranscriptLength+1)
	if _, err := e.Extract(context.Background(), long); !errors.Is(err, ErrTranscriptTooLong) {
		t.Fatalf("Extract(long) error = %v, want ErrTranscriptTooLong", err)
	}
}

func TestSuspiciousKeywords(t *testing.T) {
	e := newTestExtractor(nil)

	got := e.SuspiciousKeywords("URGENT: your account is blocked, verify immediately to get the refund")
	want := []string{"urgent", "verify", "blocked", "account", "refund", "immediately"}
	sort.Strings(got)
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}

	// Substrings inside larger words do not count.
	if got := e.SuspiciousKeywords("the winner's accountant was verifying paperwork"); len(got) != 1 || got[0] != "winner" {
		t.Fatalf("keywords = %v, want [winner]", got)
	}
}

func TestExtractBatchPreservesOrder(t *testing.T) {
	e := newTestExtractor(nil)

	bundles, err := e.ExtractBatch(context.Background(), []string{
		"pay to one@upi",
		"call 9876543210",
	})
	if err != nil {
		t.Fatalf("ExtractBatch() error = %v", err)
	}
	if len(bundles) != 2 {
		t.Fatalf("len(bundles) = %d, want 2", len(bundles))
	}
	if got := bundles[0].ByCategory(models.CategoryPaymentHandle); len(got) != 1 {
		t.Fatalf("bundles[0] handles = %v", got)
	}
	if got := bundles[1].ByCategory(models.CategoryPhoneNumber); len(got) != 1 {
		t.Fatalf("bundles[1] phones = %v", got)
	}
}
