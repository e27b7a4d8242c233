// internal/workers/catalog/refresh-property-catalog/handler.go
package refreshpropertycatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/internal/common/observability"
	"chatbot-engine/internal/models"
)

const TaskType = "refresh-property-catalog"

// PropertyCatalog serves a bot's active listings through a cache that can be
// dropped when the listings change.
type PropertyCatalog interface {
	Invalidate(ctx context.Context, botID string) error
	ActiveProperties(ctx context.Context, botID string) ([]models.PropertyRecord, error)
}

type Handler struct {
	config     *Config
	catalog    PropertyCatalog
	obs        *observability.Observability
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, catalog PropertyCatalog, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		catalog:    catalog,
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

// execute drops the cached listings and reloads them from the index, so the
// next chat turn sees the bot's current catalog.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BotID) == "" {
		return nil, apperrors.NewInvalidInputError("botId is required")
	}

	ctx, span := h.obs.StartSpan(ctx, TaskType)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = h.catalog.Invalidate(ctx, input.BotID); err != nil {
		return nil, err
	}

	searchStart := time.Now()
	props, err := h.catalog.ActiveProperties(ctx, input.BotID)
	h.obs.RecordStage(ctx, "catalog", time.Since(searchStart))
	if err != nil {
		return nil, err
	}

	h.logger.Info("Property catalog refreshed", map[string]interface{}{
		"botId":            input.BotID,
		"activeProperties": len(props),
	})

	return &Output{
		BotID:            input.BotID,
		ActiveProperties: len(props),
		RefreshedAt:      time.Now().UTC().Format(time.RFC3339),
	}, nil
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

// Execute runs the refresh without a job client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
