package genai

import (
	"context"
	"fmt"

	apperrors "chatbot-engine/internal/common/errors"
)

// Unconfigured is selected when no API key is present. Every call fails fast.
type Unconfigured struct{}

func (Unconfigured) Name() string { return ProviderUnconfigured }

func (Unconfigured) Embed(context.Context, string) ([]float64, error) {
	return nil, fmt.Errorf("%w: embed", apperrors.ErrNoProviderConfigured)
}

func (Unconfigured) EmbedBatch(context.Context, []string) ([][]float64, error) {
	return nil, fmt.Errorf("%w: embed batch", apperrors.ErrNoProviderConfigured)
}

func (Unconfigured) Complete(context.Context, CompletionRequest) (*CompletionResult, error) {
	return nil, fmt.Errorf("%w: complete", apperrors.ErrNoProviderConfigured)
}
