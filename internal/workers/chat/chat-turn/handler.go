// internal/workers/chat/chat-turn/handler.go
package chatturn

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
	"chatbot-engine/internal/pipeline"
)

const TaskType = "chat-turn"

// Runner executes one chat turn.
type Runner interface {
	Run(ctx context.Context, req pipeline.TurnRequest) (*pipeline.TurnResult, error)
}

type Handler struct {
	config     *Config
	runner     Runner
	obs        *observability.Observability
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, runner Runner, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		runner:     runner,
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
	if err := h.validateInput(input); err != nil {
		return nil, err
	}

	result, err := h.runner.Run(ctx, pipeline.TurnRequest{
		BotID:        input.BotID,
		SessionID:    input.SessionID,
		Message:      input.Message,
		History:      normalizeHistory(input.History),
		SystemPrompt: input.SystemPrompt,
		Settings:     input.AISettings,
	})
	if err != nil {
		return nil, err
	}

	output := &Output{
		Response:          result.Reply,
		SessionID:         input.SessionID,
		PropertyMatches:   make([]PropertyMatch, 0, len(result.Matches)),
		Sources:           make([]string, 0, len(result.Contexts)),
		Usage:             result.Usage,
		ShouldCaptureLead: result.ShouldCaptureLead,
		Lead:              result.Lead,
		Messages:          result.Messages,
	}
	for _, p := range result.Matches {
		output.PropertyMatches = append(output.PropertyMatches, PropertyMatch{
			ID:       p.ID,
			Location: p.Location,
			Price:    p.Price,
			Currency: p.Currency,
			Bedrooms: p.Bedrooms,
			Images:   p.ImageLinks,
		})
	}
	for _, c := range result.Contexts {
		output.Sources = append(output.Sources, c.Source)
	}

	h.logger.Info("Chat turn answered", map[string]interface{}{
		"botId":             input.BotID,
		"sessionId":         input.SessionID,
		"propertyMatches":   len(output.PropertyMatches),
		"shouldCaptureLead": output.ShouldCaptureLead,
	})

	return output, nil
}

func (h *Handler) validateInput(input *Input) error {
	if strings.TrimSpace(input.BotID) == "" {
		return apperrors.NewInvalidInputError("botId is required")
	}
	if strings.TrimSpace(input.SessionID) == "" {
		return apperrors.NewInvalidInputError("sessionId is required")
	}
	if strings.TrimSpace(input.Message) == "" {
		return apperrors.NewInvalidInputError("message is required")
	}
	if h.config.MaxMessageLength > 0 && len(input.Message) > h.config.MaxMessageLength {
		return apperrors.NewInvalidInputError(fmt.Sprintf("message exceeds %d characters", h.config.MaxMessageLength))
	}
	return nil
}

// normalizeHistory maps any non-user role onto assistant.
func normalizeHistory(history []models.Message) []models.Message {
	out := make([]models.Message, len(history))
	for i, m := range history {
		role := models.RoleAssistant
		if m.Role == models.RoleUser {
			role = models.RoleUser
		}
		out[i] = models.Message{Role: role, Content: m.Content}
	}
	return out
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

// Execute runs a chat turn without a job client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
