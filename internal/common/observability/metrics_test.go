package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJob_ExportsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs := NewWithRegisterer("chatbot-engine-test", reg)
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordJobProcessed(ctx, "chat-turn", "success")
	obs.RecordJobDuration(ctx, "chat-turn", 120*time.Millisecond, "success")
	obs.RecordStage(ctx, "rank", 3*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "jobs_processed")
	assert.Contains(t, joined, "jobs_duration")
	assert.Contains(t, joined, "pipeline_stage_duration")
}

func TestStartSpan(t *testing.T) {
	obs := NewWithRegisterer("chatbot-engine-test", promclient.NewRegistry())
	defer obs.Shutdown()

	ctx, span := obs.StartSpan(context.Background(), "embed")
	require.NotNil(t, ctx)
	assert.True(t, span.SpanContext().IsValid())
	EndSpan(span, errors.New("provider down"))
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var obs *Observability

	ctx, span := obs.StartSpan(context.Background(), "respond")
	assert.NotNil(t, ctx)
	EndSpan(span, nil)

	obs.RecordJobProcessed(ctx, "chat-turn", "failed")
	obs.RecordJobDuration(ctx, "chat-turn", time.Second, "failed")
	obs.RecordStage(ctx, "rank", time.Millisecond)
	obs.Shutdown()
}
