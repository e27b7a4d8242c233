package genai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"chatbot-engine/internal/common/config"
	apperrors "chatbot-engine/internal/common/errors"
	httpclient "chatbot-engine/internal/common/http"
	"chatbot-engine/internal/models"
)

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAI talks to /v1/embeddings and /v1/chat/completions.
type OpenAI struct {
	cfg    config.OpenAIConfig
	client *httpclient.Client
	batch  BatchOptions
}

func NewOpenAI(cfg config.OpenAIConfig, client *httpclient.Client, batch BatchOptions) *OpenAI {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAI{cfg: cfg, client: client, batch: batch}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func (o *OpenAI) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + o.cfg.APIKey}
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := o.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return embedInBatches(ctx, texts, o.batch, o.embed)
}

func (o *OpenAI) embed(ctx context.Context, texts []string) (vectors [][]float64, err error) {
	defer func(start time.Time) { observe(ProviderOpenAI, "embed", start, err) }(time.Now())

	var resp openAIEmbeddingResponse
	req := openAIEmbeddingRequest{Model: o.cfg.EmbeddingModel, Input: texts}
	if err := o.client.PostJSON(ctx, o.cfg.BaseURL+"/v1/embeddings", o.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %w", apperrors.ErrEmbeddingProvider, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs",
			apperrors.ErrEmbeddingProvider, len(resp.Data), len(texts))
	}

	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vectors = make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (result *CompletionResult, err error) {
	defer func(start time.Time) { observe(ProviderOpenAI, "complete", start, err) }(time.Now())

	model := req.Model
	if model == "" {
		model = o.cfg.Model
	}

	messages := make([]openAIMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	body := openAIChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	var resp openAIChatResponse
	if err := o.client.PostJSON(ctx, o.cfg.BaseURL+"/v1/chat/completions", o.headers(), body, &resp); err != nil {
		return nil, fmt.Errorf("%w: openai chat: %w", apperrors.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", apperrors.ErrGenerationFailed)
	}

	if resp.Model != "" {
		model = resp.Model
	}
	result = &CompletionResult{
		Text: resp.Choices[0].Message.Content,
		Usage: models.UsageMetrics{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Model:            model,
		},
	}
	recordUsage(ProviderOpenAI, result.Usage)
	return result, nil
}
