package services

import (
	"context"
	"errors"
	"testing"

	"scambait-lab/internal/domain/models"
	"scambait-lab/pkg/logger"
)

// fakeScorer is a canned zero-shot backend. Primary calls carry two labels,
// type calls carry the full category list.
type fakeScorer struct {
	primary    map[string]float64
	primaryErr error
	types      map[string]float64
	typesErr   error
	calls      int
}

func (f *fakeScorer) ScoreLabels(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	f.calls++
	if len(labels) == len(PrimaryLabels) {
		return f.primary, f.primaryErr
	}
	return f.types, f.typesErr
}

func newTestClassifier(scorer *fakeScorer) *Classifier {
	return NewClassifier(scorer, nil, ClassifierConfig{}, logger.NewDefault())
}

func TestClassifyScamWithType(t *testing.T) {
	scorer := &fakeScorer{
		primary: map[string]float64{"scam": 0.92, "legitimate": 0.08},
		types:   map[string]float64{"phishing scam": 0.81, "lottery scam": 0.1},
	}
	c := newTestClassifier(scorer)

	result, err := c.Classify(context.Background(), "your account is blocked, click here")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !result.IsScam {
		t.Fatalf("IsScam = false, want true")
	}
	if result.Probability != 0.92 {
		t.Fatalf("Probability = %v, want 0.92", result.Probability)
	}
	if result.ScamType != models.ScamTypePhishing {
		t.Fatalf("ScamType = %q, want %q", result.ScamType, models.ScamTypePhishing)
	}
	if result.TypeConfidence != 0.81 {
		t.Fatalf("TypeConfidence = %v, want 0.81", result.TypeConfidence)
	}
	if scorer.calls != 2 {
		t.Fatalf("scorer calls = %d, want 2", scorer.calls)
	}
}

func TestClassifyThresholdBoundary(t *testing.T) {
	scorer := &fakeScorer{
		primary: map[string]float64{"scam": 0.5, "legitimate": 0.5},
		types:   map[string]float64{"phishing scam": 0.6},
	}
	c := newTestClassifier(scorer)

	result, err := c.Classify(context.Background(), "borderline text")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !result.IsScam {
		t.Fatalf("IsScam = false at threshold, want true")
	}
}

func TestClassifyLegitimateSkipsTypeStage(t *testing.T) {
	scorer := &fakeScorer{
		primary: map[string]float64{"scam": 0.2, "legitimate": 0.8},
	}
	c := newTestClassifier(scorer)

	result, err := c.Classify(context.Background(), "hello, your parcel arrives tomorrow")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.IsScam {
		t.Fatalf("IsScam = true, want false")
	}
	if result.ScamType != "" {
		t.Fatalf("ScamType = %q, want empty", result.ScamType)
	}
	if scorer.calls != 1 {
		t.Fatalf("scorer calls = %d, want 1", scorer.calls)
	}
}

func TestClassifyLowTypeConfidenceFallsBackToOther(t *testing.T) {
	scorer := &fakeScorer{
		primary: map[string]float64{"scam": 0.7, "legitimate": 0.3},
		types:   map[string]float64{"phishing scam": 0.2, "job scam": 0.15},
	}
	c := newTestClassifier(scorer)

	result, err := c.Classify(context.Background(), "vague suspicious text")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.ScamType != models.ScamTypeOther {
		t.Fatalf("ScamType = %q, want %q", result.ScamType, models.ScamTypeOther)
	}
}

func TestClassifyDegradedOnPrimaryFailure(t *testing.T) {
	scorer := &fakeScorer{primaryErr: errors.New("backend down")}
	c := newTestClassifier(scorer)

	result, err := c.Classify(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Classify() error = %v, want nil on degraded result", err)
	}
	if !result.Degraded {
		t.Fatalf("Degraded = false, want true")
	}
	if result.IsScam {
		t.Fatalf("IsScam = true on degraded result")
	}
}

func TestClassifyTypeStageFailureKeepsBinaryVerdict(t *testing.T) {
	scorer := &fakeScorer{
		primary:  map[string]float64{"scam": 0.9, "legitimate": 0.1},
		typesErr: errors.New("backend down"),
	}
	c := newTestClassifier(scorer)

	result, err := c.Classify(context.Background(), "pay now or your account closes")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !result.IsScam || result.Degraded {
		t.Fatalf("result = %+v, want scam verdict without degradation", result)
	}
	if result.ScamType != models.ScamTypeOther {
		t.Fatalf("ScamType = %q, want %q", result.ScamType, models.ScamTypeOther)
	}
}

func TestClassifyEmptyText(t *testing.T) {
	c := newTestClassifier(&fakeScorer{})

	if _, err := c.Classify(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("Classify() error = %v, want ErrEmptyText", err)
	}
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	scorer := &fakeScorer{
		primary: map[string]float64{"scam": 0.9, "legitimate": 0.1},
		types:   map[string]float64{"phishing scam": 0.7},
	}
	c := newTestClassifier(scorer)

	results, err := c.ClassifyBatch(context.Background(), []string{"first", "second", "third"})
	if err != nil {
		t.Fatalf("ClassifyBatch() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, r := range results {
		if !r.IsScam {
			t.Fatalf("results[%d].IsScam = false, want true", i)
		}
	}
}
