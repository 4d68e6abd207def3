package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"scambait-lab/internal/domain/models"
	"scambait-lab/internal/domain/services/ai"
	"scambait-lab/pkg/logger"
)

// fakeCompleter records the prompt it was given and returns a canned reply
type fakeCompleter struct {
	reply    string
	err      error
	system   string
	messages []ai.ChatMessage
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, messages []ai.ChatMessage) (string, error) {
	f.system = system
	f.messages = messages
	return f.reply, f.err
}

func turn(role models.Role, text string) models.Turn {
	return models.Turn{ID: uuid.New(), Role: role, Text: text, Timestamp: time.Now()}
}

func TestGenerateBuildsChatPrompt(t *testing.T) {
	completer := &fakeCompleter{reply: "Oh my, who is calling please?"}
	g := NewGenerator(completer, logger.NewDefault())

	window := []models.Turn{
		turn(models.RoleScammer, "Hello, I am from your bank"),
		turn(models.RoleHoneypot, "Oh dear, which bank?"),
	}
	reply := g.Generate(context.Background(), window, "Your account is blocked")

	if reply != "Oh my, who is calling please?" {
		t.Fatalf("reply = %q", reply)
	}
	if completer.system != PersonaPrompt {
		t.Fatalf("system prompt = %q, want persona prompt", completer.system)
	}

	want := []ai.ChatMessage{
		{Role: "user", Content: "Hello, I am from your bank"},
		{Role: "assistant", Content: "Oh dear, which bank?"},
		{Role: "user", Content: "Your account is blocked"},
	}
	if len(completer.messages) != len(want) {
		t.Fatalf("len(messages) = %d, want %d", len(completer.messages), len(want))
	}
	for i := range want {
		if completer.messages[i] != want[i] {
			t.Fatalf("messages[%d] = %+v, want %+v", i, completer.messages[i], want[i])
		}
	}
}

func TestGenerateFallbackOnError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("backend down")}
	g := NewGenerator(completer, logger.NewDefault())

	reply := g.Generate(context.Background(), nil, "hello")
	if reply != GenerationFallback {
		t.Fatalf("reply = %q, want fallback", reply)
	}
}

func TestGenerateFallbackOnEmptyReply(t *testing.T) {
	completer := &fakeCompleter{reply: "   \n"}
	g := NewGenerator(completer, logger.NewDefault())

	reply := g.Generate(context.Background(), nil, "hello")
	if reply != GenerationFallback {
		t.Fatalf("reply = %q, want fallback", reply)
	}
}
