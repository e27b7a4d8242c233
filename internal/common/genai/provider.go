// Package genai adapts hosted embedding and chat-completion APIs behind one
// Provider interface. The provider is selected once at startup.
package genai

import (
	"context"
	"time"

	"chatbot-engine/internal/common/config"
	httpclient "chatbot-engine/internal/common/http"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/internal/models"
)

const (
	ProviderOpenAI       = "openai"
	ProviderGemini       = "gemini"
	ProviderUnconfigured = "unconfigured"

	DefaultBatchSize   = 10
	DefaultConcurrency = 4
)

// Embedder turns text into vectors. EmbedBatch results are in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Completer runs a single chat completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

type Provider interface {
	Embedder
	Completer
	Name() string
}

// CompletionRequest is provider-neutral. System is sent as the system turn
// where the provider has one and folded into the last user turn otherwise.
type CompletionRequest struct {
	System      string
	Messages    []models.Message
	Model       string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

type CompletionResult struct {
	Text  string
	Usage models.UsageMetrics
}

// NewProvider picks the provider: explicit ai.provider, then whichever API key
// is present (OpenAI first), then a provider that fails every call.
func NewProvider(cfg config.AIConfig, log logger.Logger) Provider {
	client := httpclient.NewClient(config.GetDuration(cfg.Timeout))

	name := cfg.Provider
	if name == "" {
		switch {
		case cfg.OpenAI.APIKey != "":
			name = ProviderOpenAI
		case cfg.Gemini.APIKey != "":
			name = ProviderGemini
		}
	}

	var p Provider
	switch name {
	case ProviderOpenAI:
		p = NewOpenAI(cfg.OpenAI, client, batchOptions(cfg))
	case ProviderGemini:
		p = NewGemini(cfg.Gemini, client, batchOptions(cfg))
	default:
		p = Unconfigured{}
	}

	log.Info("AI provider selected", map[string]interface{}{
		"provider": p.Name(),
	})
	return p
}

// BatchOptions bounds EmbedBatch fan-out.
type BatchOptions struct {
	Size        int
	Concurrency int
}

// batchOptions pins the sub-batch size; only concurrency is configurable.
func batchOptions(cfg config.AIConfig) BatchOptions {
	return BatchOptions{Size: DefaultBatchSize, Concurrency: cfg.Concurrency}
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Size <= 0 {
		o.Size = DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

func observe(provider, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ProviderRequests.WithLabelValues(provider, operation, status).Inc()
	metrics.ProviderRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

func recordUsage(provider string, u models.UsageMetrics) {
	metrics.ProviderTokens.WithLabelValues(provider, "prompt").Add(float64(u.PromptTokens))
	metrics.ProviderTokens.WithLabelValues(provider, "completion").Add(float64(u.CompletionTokens))
}
