package services

import (
	"context"
	"strings"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/domain/services/ai"
	"scambait-lab/pkg/logger"
)

// PersonaPrompt fixes the honeypot character. It never mentions detection
// or filtering so the model cannot leak it.
const PersonaPrompt = "You are a cooperative elderly person who is slightly confused but willing to help. " +
	"Never ask for OTP, passwords, credit card numbers, or bank account details. " +
	"Never provide real personal information like addresses, real phone numbers, or financial data. " +
	"Engage naturally with the caller while subtly extracting information they volunteer " +
	"(phone numbers, organization names, payment methods). " +
	"Keep responses short (2-3 sentences), natural, and slightly hesitant."

// GenerationFallback is returned whenever the model backend fails
const GenerationFallback = "I'm not sure I understand. Could you explain that again?"

// Generator produces in-character honeypot replies
type Generator struct {
	completer ai.ChatCompleter
	logger    *logger.Logger
}

// NewGenerator creates a new response generator
func NewGenerator(completer ai.ChatCompleter, log *logger.Logger) *Generator {
	return &Generator{
		completer: completer,
		logger:    log.WithComponent("generator"),
	}
}

// Generate builds the chat prompt from the windowed history plus the
// incoming message and returns the reply. Backend failure degrades to the
// stock confusion fallback so the turn still completes.
func (g *Generator) Generate(ctx context.Context, window []models.Turn, incoming string) string {
	messages := buildMessages(window, incoming)

	reply, err := g.completer.Complete(ctx, PersonaPrompt, messages)
	if err != nil {
		g.logger.Warn().Err(err).Msg("generation failed, using fallback reply")
		return GenerationFallback
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return GenerationFallback
	}
	return reply
}

// buildMessages maps conversation roles onto the chat completion wire roles:
// the counterpart speaks as "user", the honeypot as "assistant".
func buildMessages(window []models.Turn, incoming string) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(window)+1)
	for _, turn := range window {
		role := "user"
		if turn.Role == models.RoleHoneypot {
			role = "assistant"
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: incoming})
	return messages
}
