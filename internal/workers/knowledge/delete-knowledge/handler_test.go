// internal/workers/knowledge/delete-knowledge/handler_test.go
package deleteknowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
)

type memoryStore struct {
	docs map[string]string // document id -> bot id
	err  error
}

func (m *memoryStore) DeleteDocument(_ context.Context, botID, documentID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if owner, ok := m.docs[documentID]; !ok || owner != botID {
		return false, nil
	}
	delete(m.docs, documentID)
	return true, nil
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func TestHandler_Execute_Deletes(t *testing.T) {
	store := &memoryStore{docs: map[string]string{"kb-1": "bot-1", "kb-2": "bot-2"}}
	h := NewHandler(createTestConfig(), store, nil, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{BotID: "bot-1", KnowledgeBaseID: "kb-1"})
	require.NoError(t, err)
	assert.Equal(t, &Output{KnowledgeBaseID: "kb-1", Deleted: true}, output)
	assert.NotContains(t, store.docs, "kb-1")

	// a second delivery of the same job finds nothing and still completes
	output, err = h.Execute(context.Background(), &Input{BotID: "bot-1", KnowledgeBaseID: "kb-1"})
	require.NoError(t, err)
	assert.False(t, output.Deleted)
}

func TestHandler_Execute_OtherBotsDocumentIsUntouched(t *testing.T) {
	store := &memoryStore{docs: map[string]string{"kb-2": "bot-2"}}
	h := NewHandler(createTestConfig(), store, nil, logger.NewNoOpLogger())

	output, err := h.Execute(context.Background(), &Input{BotID: "bot-1", KnowledgeBaseID: "kb-2"})
	require.NoError(t, err)
	assert.False(t, output.Deleted)
	assert.Contains(t, store.docs, "kb-2")
}

func TestHandler_Execute_Failures(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		store    *memoryStore
		wantErr  error
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "missing bot id",
			input:    &Input{KnowledgeBaseID: "kb-1"},
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "missing document id",
			input:    &Input{BotID: "bot-1", KnowledgeBaseID: " "},
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "store failure",
			input:    &Input{BotID: "bot-1", KnowledgeBaseID: "kb-1"},
			store:    &memoryStore{err: fmt.Errorf("%w: delete document: conn refused", apperrors.ErrKnowledgeStore)},
			wantErr:  apperrors.ErrKnowledgeStore,
			wantCode: apperrors.ErrCodeKnowledgeStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = &memoryStore{docs: map[string]string{"kb-1": "bot-1"}}
			}

			h := NewHandler(createTestConfig(), store, nil, logger.NewNoOpLogger())
			output, err := h.Execute(context.Background(), tt.input)

			assert.Nil(t, output)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
			assert.Equal(t, tt.wantCode, apperrors.FromError(err).Code)
		})
	}
}
