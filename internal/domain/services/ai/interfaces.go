package ai

import "context"

// LabelScorer scores a text against candidate labels (zero-shot classification)
type LabelScorer interface {
	ScoreLabels(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// ChatCompleter produces a chat completion from a system prompt and messages
type ChatCompleter interface {
	Complete(ctx context.Context, system string, messages []ChatMessage) (string, error)
}

// TokenClassifier runs named-entity recognition over a text
type TokenClassifier interface {
	RecognizeEntities(ctx context.Context, text string) ([]NEREntity, error)
}

// ChatMessage is a single role/content pair in a chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NEREntity is one span returned by the token classifier
type NEREntity struct {
	Group string  `json:"entity_group"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}
