package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-engine/internal/common/validation"
)

func loadShipped(t *testing.T) *ActivityRegistry {
	t.Helper()
	reg, err := LoadRegistry(filepath.Join("..", "..", DefaultPath))
	require.NoError(t, err)
	return reg
}

func TestShippedRegistry_CoversWorkers(t *testing.T) {
	reg := loadShipped(t)

	require.NoError(t, reg.Validate())
	assert.Empty(t, reg.Missing("ingest-knowledge", "chat-turn", "send-lead-notification"))
	assert.Equal(t, []string{"franchise-search"}, reg.Missing("chat-turn", "franchise-search"))
}

func TestActivity_ValidateInput(t *testing.T) {
	reg := loadShipped(t)
	chat, ok := reg.Find("chat-turn")
	require.True(t, ok)

	tests := []struct {
		name  string
		vars  string
		valid bool
	}{
		{"minimal", `{"botId":"b1","sessionId":"s1","message":"hi"}`, true},
		{"with history", `{"botId":"b1","sessionId":"s1","message":"hi","history":[{"role":"user","content":"hello"}]}`, true},
		{"null history", `{"botId":"b1","sessionId":"s1","message":"hi","history":null}`, true},
		{"missing message", `{"botId":"b1","sessionId":"s1"}`, false},
		{"empty bot", `{"botId":"","sessionId":"s1","message":"hi"}`, false},
		{"history entry without role", `{"botId":"b1","sessionId":"s1","message":"hi","history":[{"content":"x"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := chat.ValidateInput([]byte(tt.vars))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var schemaErr *validation.SchemaError
			assert.True(t, errors.As(err, &schemaErr), "got %v", err)
		})
	}
}

func TestActivity_ValidateInput_UnknownSource(t *testing.T) {
	ingest, ok := loadShipped(t).Find("ingest-knowledge")
	require.True(t, ok)

	assert.NoError(t, ingest.ValidateInput([]byte(`{"botId":"b1","source":"upload","filename":"a.pdf","content":"x"}`)))
	assert.Error(t, ingest.ValidateInput([]byte(`{"botId":"b1","source":"ftp","content":"x"}`)))
}

func TestActivity_NoSchemaAcceptsAnything(t *testing.T) {
	a := &Activity{ID: "x"}
	assert.NoError(t, a.ValidateInput([]byte(`{"anything":true}`)))
}

func TestValidate(t *testing.T) {
	valid := func() Activity {
		return Activity{ID: "chat-turn", DisplayName: "Chat Turn", Category: "chat", TaskType: "chat-turn", Timeout: "45s"}
	}

	tests := []struct {
		name    string
		mutate  func(r *ActivityRegistry)
		wantErr string
	}{
		{"empty", func(r *ActivityRegistry) { r.Activities = nil }, "no activities"},
		{"duplicate id", func(r *ActivityRegistry) {
			dup := valid()
			dup.TaskType = "other"
			r.Activities = append(r.Activities, dup)
		}, "duplicate activity ID"},
		{"duplicate task type", func(r *ActivityRegistry) {
			dup := valid()
			dup.ID = "other"
			r.Activities = append(r.Activities, dup)
		}, "duplicate task type"},
		{"missing category", func(r *ActivityRegistry) { r.Activities[0].Category = "" }, "Category"},
		{"bad timeout", func(r *ActivityRegistry) { r.Activities[0].Timeout = "soon" }, "invalid timeout"},
		{"bad schema", func(r *ActivityRegistry) {
			r.Activities[0].InputSchema = map[string]interface{}{"type": 42}
		}, "invalid schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{valid()}}
			require.NoError(t, reg.Validate())

			tt.mutate(reg)
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadRegistry(path)
	assert.ErrorContains(t, err, "parse registry")
}
