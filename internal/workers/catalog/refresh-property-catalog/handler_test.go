// internal/workers/catalog/refresh-property-catalog/handler_test.go
package refreshpropertycatalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/models"
	"chatbot-engine/internal/repository/catalog"
)

type stubCatalog struct {
	props         []models.PropertyRecord
	invalidateErr error
	searchErr     error
	calls         []string
}

func (s *stubCatalog) Invalidate(_ context.Context, botID string) error {
	s.calls = append(s.calls, "invalidate:"+botID)
	return s.invalidateErr
}

func (s *stubCatalog) ActiveProperties(_ context.Context, botID string) ([]models.PropertyRecord, error) {
	s.calls = append(s.calls, "search:"+botID)
	return s.props, s.searchErr
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func TestHandler_Execute_InvalidatesThenReloads(t *testing.T) {
	stub := &stubCatalog{props: []models.PropertyRecord{{ID: "p1"}, {ID: "p2"}}}
	h := NewHandler(createTestConfig(), stub, nil, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{BotID: "bot-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"invalidate:bot-1", "search:bot-1"}, stub.calls)
	assert.Equal(t, "bot-1", output.BotID)
	assert.Equal(t, 2, output.ActiveProperties)
	assert.NotEmpty(t, output.RefreshedAt)
}

func TestHandler_Execute_Failures(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		stub      *stubCatalog
		wantErr   error
		wantCode  apperrors.ErrorCode
		wantCalls int
	}{
		{
			name:     "missing bot id",
			input:    &Input{BotID: "  "},
			stub:     &stubCatalog{},
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:      "cache unavailable",
			input:     &Input{BotID: "bot-1"},
			stub:      &stubCatalog{invalidateErr: fmt.Errorf("%w: invalidate cache: conn refused", apperrors.ErrCatalogUnavailable)},
			wantErr:   apperrors.ErrCatalogUnavailable,
			wantCode:  apperrors.ErrCodeCatalogUnavailable,
			wantCalls: 1,
		},
		{
			name:      "index unavailable",
			input:     &Input{BotID: "bot-1"},
			stub:      &stubCatalog{searchErr: fmt.Errorf("%w: search failed: 503", apperrors.ErrCatalogUnavailable)},
			wantErr:   apperrors.ErrCatalogUnavailable,
			wantCode:  apperrors.ErrCodeCatalogUnavailable,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), tt.stub, nil, logger.NewNoOpLogger())
			output, err := h.Execute(context.Background(), tt.input)

			assert.Nil(t, output)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
			assert.Equal(t, tt.wantCode, apperrors.FromError(err).Code)
			assert.Len(t, tt.stub.calls, tt.wantCalls)
		})
	}
}

func TestHandler_Execute_RefreshesCachedCatalog(t *testing.T) {
	var searches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		n := atomic.AddInt32(&searches, 1)
		if n == 1 {
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{"id":"p1","botId":"bot-1","isActive":true}}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"id":"p1","botId":"bot-1","isActive":true}},
			{"_source":{"id":"p3","botId":"bot-1","isActive":true}}
		]}}`))
	}))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cat := catalog.New(es, rdb, "properties", time.Hour, logger.NewNoOpLogger())
	ctx := context.Background()

	stale, err := cat.ActiveProperties(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, stale, 1)

	output, err := NewHandler(createTestConfig(), cat, nil, logger.NewNoOpLogger()).Execute(ctx, &Input{BotID: "bot-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, output.ActiveProperties)

	// the refreshed listings are what the cache now serves
	fresh, err := cat.ActiveProperties(ctx, "bot-1")
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&searches))
}
