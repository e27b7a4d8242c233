package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatbot-engine/internal/common/config"
	apperrors "chatbot-engine/internal/common/errors"
	httpclient "chatbot-engine/internal/common/http"
	"chatbot-engine/internal/models"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Gemini talks to the Generative Language API. It always uses its configured
// models; per-bot model settings name OpenAI models.
type Gemini struct {
	cfg    config.GeminiConfig
	client *httpclient.Client
	batch  BatchOptions
}

func NewGemini(cfg config.GeminiConfig, client *httpclient.Client, batch BatchOptions) *Gemini {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Gemini{cfg: cfg, client: client, batch: batch}
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) endpoint(model, method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s", g.cfg.BaseURL, model, method)
}

// headers carries the API key; it never goes into the URL, which transport
// errors echo back.
func (g *Gemini) headers() map[string]string {
	return map[string]string{"x-goog-api-key": g.cfg.APIKey}
}

func (g *Gemini) Embed(ctx context.Context, text string) (vector []float64, err error) {
	defer func(start time.Time) { observe(ProviderGemini, "embed", start, err) }(time.Now())

	req := geminiEmbedRequest{
		Model:   "models/" + g.cfg.EmbeddingModel,
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}

	var resp geminiEmbedResponse
	if err := g.client.PostJSON(ctx, g.endpoint(g.cfg.EmbeddingModel, "embedContent"), g.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("%w: gemini embedContent: %w", apperrors.ErrEmbeddingProvider, err)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: gemini returned an empty embedding", apperrors.ErrEmbeddingProvider)
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds one text per request; sub-batches still run concurrently.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return embedInBatches(ctx, texts, g.batch, func(ctx context.Context, batch []string) ([][]float64, error) {
		vectors := make([][]float64, len(batch))
		for i, text := range batch {
			v, err := g.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			vectors[i] = v
		}
		return vectors, nil
	})
}

// Complete maps history onto user/model turns and folds the system prompt
// into the final user turn.
func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (result *CompletionResult, err error) {
	defer func(start time.Time) { observe(ProviderGemini, "complete", start, err) }(time.Now())

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: gemini completion needs at least one message", apperrors.ErrGenerationFailed)
	}

	history := req.Messages[:len(req.Messages)-1]
	last := req.Messages[len(req.Messages)-1]

	contents := make([]geminiContent, 0, len(req.Messages))
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	prompt := last.Content
	if req.System != "" {
		prompt = req.System + "\n\nUser: " + last.Content
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: prompt}}})

	body := geminiGenerateRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}

	var resp geminiGenerateResponse
	if err := g.client.PostJSON(ctx, g.endpoint(g.cfg.Model, "generateContent"), g.headers(), body, &resp); err != nil {
		return nil, fmt.Errorf("%w: gemini generateContent: %w", apperrors.ErrGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no candidates", apperrors.ErrGenerationFailed)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	result = &CompletionResult{
		Text: text.String(),
		Usage: models.UsageMetrics{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			Model:            g.cfg.Model,
		},
	}
	recordUsage(ProviderGemini, result.Usage)
	return result, nil
}
