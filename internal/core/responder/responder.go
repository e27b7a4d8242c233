// Package responder generates the assistant reply for a chat turn.
package responder

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/genai"
	"chatbot-engine/internal/models"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500

	contextHeader = "\n\nRelevant Information:\n"
)

// Reply is the generated text and what it cost.
type Reply struct {
	Text  string              `json:"text"`
	Usage models.UsageMetrics `json:"usage"`
}

type Responder struct {
	completer genai.Completer
}

func New(completer genai.Completer) *Responder {
	return &Responder{completer: completer}
}

// Respond sends history, already truncated by the caller, to the provider
// under a system prompt that embeds the ranked context.
func (r *Responder) Respond(ctx context.Context, history []models.Message, systemPrompt string, contexts []string, settings models.AISettings) (*Reply, error) {
	temperature := DefaultTemperature
	if settings.Temperature != nil {
		temperature = *settings.Temperature
	}
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	res, err := r.completer.Complete(ctx, genai.CompletionRequest{
		System:      BuildSystemPrompt(systemPrompt, contexts),
		Messages:    history,
		Model:       settings.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		if stderrors.Is(err, apperrors.ErrNoProviderConfigured) || stderrors.Is(err, apperrors.ErrGenerationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGenerationFailed, err)
	}

	return &Reply{Text: res.Text, Usage: res.Usage}, nil
}

// BuildSystemPrompt appends numbered context snippets to the bot prompt.
func BuildSystemPrompt(systemPrompt string, contexts []string) string {
	if len(contexts) == 0 {
		return systemPrompt
	}

	numbered := make([]string, len(contexts))
	for i, c := range contexts {
		numbered[i] = fmt.Sprintf("[%d] %s", i+1, c)
	}
	return systemPrompt + contextHeader + strings.Join(numbered, "\n\n")
}
