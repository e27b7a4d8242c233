// internal/workers/chat/chat-turn/handler_test.go
package chatturn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/genai"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/models"
	"chatbot-engine/internal/pipeline"
)

type stubProvider struct {
	extraction string
	reply      string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Embed(_ context.Context, text string) ([]float64, error) {
	if strings.Contains(text, "DHA") {
		return []float64{1, 0}, nil
	}
	return []float64{0, 1}, nil
}

func (s *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i], _ = s.Embed(ctx, t)
	}
	return out, nil
}

func (s *stubProvider) Complete(_ context.Context, req genai.CompletionRequest) (*genai.CompletionResult, error) {
	if req.JSONMode {
		return &genai.CompletionResult{Text: s.extraction}, nil
	}
	return &genai.CompletionResult{Text: s.reply, Usage: models.UsageMetrics{TotalTokens: 30, Model: "stub"}}, nil
}

type stubKnowledge struct{}

func (stubKnowledge) ChunksForBot(context.Context, string) ([]models.KnowledgeChunk, error) {
	return []models.KnowledgeChunk{
		{Text: "Marla = 272 sqft", Embedding: []float64{0, 1}, SourceID: "doc-sizes", Filename: "plot-sizes.pdf"},
		{Text: "DHA is premium", Embedding: []float64{1, 0}, SourceID: "doc-areas", Filename: "areas.txt"},
	}, nil
}

type stubCatalog struct{}

func (stubCatalog) ActiveProperties(context.Context, string) ([]models.PropertyRecord, error) {
	return []models.PropertyRecord{
		{ID: "p1", Location: "DHA Phase 6", City: "Lahore", Price: 2500000, Currency: "PKR", Bedrooms: 4, PropertyType: "house"},
		{ID: "p2", Location: "DHA Phase 5", City: "Lahore", Price: 1500000, Currency: "PKR", Bedrooms: 3, PropertyType: "house", ImageLinks: []string{"https://img.example.com/p2.jpg"}},
	}, nil
}

type failingRunner struct{ err error }

func (f failingRunner) Run(context.Context, pipeline.TurnRequest) (*pipeline.TurnResult, error) {
	return nil, f.err
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MaxMessageLength: 200}
}

func newHandler(t *testing.T, provider genai.Provider) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	p := pipeline.New(provider, stubKnowledge{}, stubCatalog{}, nil, log, pipeline.Options{})
	return NewHandler(createTestConfig(), p, nil, log)
}

func TestHandler_Execute_Success(t *testing.T) {
	h := newHandler(t, &stubProvider{
		extraction: `{"budget":{"min":1000000,"max":2000000,"currency":"PKR"},"location":"DHA","propertyType":"house","bedrooms":3,"features":[]}`,
		reply:      "DHA is one of the premium societies.",
	})

	output, err := h.Execute(context.Background(), &Input{
		BotID:     "bot-1",
		SessionID: "session-1",
		Message:   "Show me a 3 bed house in DHA, what is the price?",
		History: []models.Message{
			{Role: "user", Content: "hi"},
			{Role: "bot", Content: "Hello! How can I help?"},
		},
		SystemPrompt: "You are a real estate assistant.",
	})
	require.NoError(t, err)

	assert.Equal(t, "session-1", output.SessionID)
	assert.Equal(t, []string{"areas.txt", "plot-sizes.pdf"}, output.Sources)
	require.Len(t, output.PropertyMatches, 1)
	assert.Equal(t, "p2", output.PropertyMatches[0].ID)
	assert.Equal(t, []string{"https://img.example.com/p2.jpg"}, output.PropertyMatches[0].Images)
	assert.Contains(t, output.Response, "1,500,000 PKR")
	assert.True(t, output.ShouldCaptureLead)
	require.NotNil(t, output.Lead)
	assert.Equal(t, "house", output.Lead.InterestedIn)

	require.Len(t, output.Messages, 4)
	assert.Equal(t, models.RoleAssistant, output.Messages[1].Role)
	assert.Equal(t, output.Response, output.Messages[3].Content)
}

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	h := newHandler(t, &stubProvider{reply: "ok"})

	tests := []struct {
		name  string
		input *Input
	}{
		{"missing bot", &Input{SessionID: "s", Message: "hi"}},
		{"missing session", &Input{BotID: "b", Message: "hi"}},
		{"blank message", &Input{BotID: "b", SessionID: "s", Message: "   "}},
		{"message too long", &Input{BotID: "b", SessionID: "s", Message: strings.Repeat("a", 201)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), tt.input)
			assert.Nil(t, output)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.FromError(err).Code)
		})
	}
}

func TestHandler_Execute_PipelineErrorPropagates(t *testing.T) {
	h := NewHandler(createTestConfig(), failingRunner{err: apperrors.ErrGenerationFailed}, nil, logger.NewNoOpLogger())

	output, err := h.Execute(context.Background(), &Input{BotID: "b", SessionID: "s", Message: "hi"})
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))

	bpmn := apperrors.ConvertToBPMNError(apperrors.FromError(err))
	assert.Greater(t, bpmn.Retries, 0)
}

func TestNormalizeHistory(t *testing.T) {
	got := normalizeHistory([]models.Message{{Role: "user", Content: "a"}, {Role: "system", Content: "b"}})
	assert.Equal(t, models.RoleUser, got[0].Role)
	assert.Equal(t, models.RoleAssistant, got[1].Role)
}
