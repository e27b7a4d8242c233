// internal/common/camunda/worker.go
package camunda

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"chatbot-engine/internal/common/config"
	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/pkg/registry"
)

// JobHandler is what every worker package exposes.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// StartWorker opens a job worker for taskType. It returns nil when the worker
// is disabled.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jobWorker
}

// WithInputValidation checks job variables against the activity's input
// schema before the wrapped handler sees them. A job that fails the schema is
// thrown as INVALID_INPUT without being retried.
func WithInputValidation(handler JobHandler, activity *registry.Activity, log logger.Logger) JobHandler {
	if activity == nil || len(activity.InputSchema) == 0 {
		return handler
	}
	return &validatingHandler{
		next:       handler,
		activity:   activity,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

type validatingHandler struct {
	next       JobHandler
	activity   *registry.Activity
	errHandler *apperrors.ErrorHandler
}

func (h *validatingHandler) Handle(client worker.JobClient, job entities.Job) {
	if err := h.activity.ValidateInput([]byte(job.GetVariables())); err != nil {
		metrics.JobInputRejected.WithLabelValues(h.activity.TaskType).Inc()
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewInvalidInputError(err.Error()))
		return
	}
	h.next.Handle(client, job)
}
