// internal/workers/knowledge/ingest-knowledge/handler.go
package ingestknowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/genai"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/internal/common/observability"
	"chatbot-engine/internal/core/chunker"
	"chatbot-engine/internal/models"
)

const TaskType = "ingest-knowledge"

// DocumentStore persists an embedded document and assigns its id.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *models.KnowledgeDocument) error
}

type Handler struct {
	config     *Config
	embedder   genai.Embedder
	store      DocumentStore
	obs        *observability.Observability
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, embedder genai.Embedder, store DocumentStore, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		embedder:   embedder,
		store:      store,
		obs:        obs,
		logger:     scoped,
		errHandler: apperrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)), start)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output, start)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	ctx, span := h.obs.StartSpan(ctx, TaskType)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	chunks, err := chunker.Chunk(input.Content, h.config.ChunkSize, h.config.Overlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		err = apperrors.NewInvalidInputError("content has no text")
		return nil, err
	}

	embedStart := time.Now()
	embeddings, err := h.embedder.EmbedBatch(ctx, chunks)
	h.obs.RecordStage(ctx, "embed", time.Since(embedStart))
	if err != nil {
		return nil, err
	}

	doc := &models.KnowledgeDocument{
		BotID:      input.BotID,
		Source:     input.Source,
		Filename:   input.Filename,
		Content:    input.Content,
		UploadedAt: time.Now().UTC(),
		Chunks:     make([]models.KnowledgeChunk, len(chunks)),
	}
	for i, text := range chunks {
		doc.Chunks[i] = models.KnowledgeChunk{
			Text:       text,
			Embedding:  embeddings[i],
			ChunkIndex: i,
		}
	}

	if err = h.store.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	h.logger.Info("Knowledge ingested", map[string]interface{}{
		"botId":           input.BotID,
		"knowledgeBaseId": doc.ID,
		"chunksProcessed": len(chunks),
	})

	return &Output{
		KnowledgeBaseID: doc.ID,
		ChunksProcessed: len(chunks),
		UploadedAt:      doc.UploadedAt.Format(time.RFC3339),
	}, nil
}

func validateInput(input *Input) error {
	if strings.TrimSpace(input.BotID) == "" {
		return apperrors.NewInvalidInputError("botId is required")
	}
	if input.Source == "" {
		input.Source = SourceText
	}
	if input.Source != SourceUpload && input.Source != SourceText {
		return apperrors.NewInvalidInputError(fmt.Sprintf("unknown source %q", input.Source))
	}
	if input.Filename == "" && input.Source == SourceUpload {
		return apperrors.NewInvalidInputError("filename is required for uploads")
	}
	return nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	code := apperrors.FromError(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")

	h.errHandler.HandleJobError(ctx, client, job, err)
}

// Execute runs the ingestion without a job client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
