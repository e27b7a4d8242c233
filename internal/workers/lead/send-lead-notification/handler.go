// internal/workers/lead/send-lead-notification/handler.go
package sendleadnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/internal/common/observability"
	"chatbot-engine/internal/common/validation"
	"chatbot-engine/internal/models"
	"chatbot-engine/internal/pipeline"
)

const TaskType = "send-lead-notification"

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config     *Config
	leads      pipeline.LeadStore
	sesClient  SESService
	snsClient  SNSService
	obs        *observability.Observability
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, leads pipeline.LeadStore, sesClient SESService, snsClient SNSService, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		leads:      leads,
		sesClient:  sesClient,
		snsClient:  snsClient,
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
	if strings.TrimSpace(input.BotID) == "" || strings.TrimSpace(input.SessionID) == "" {
		return nil, apperrors.NewInvalidInputError("botId and sessionId are required")
	}
	if !input.LeadCapture.IsEnabled() {
		return &Output{Notifications: []models.Notification{}}, nil
	}
	if input.CapturedAt == "" {
		input.CapturedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if input.Lead.LeadID == "" {
		input.Lead.LeadID = uuid.NewString()
	}

	first, err := h.leads.MarkNotified(ctx, input.BotID, input.SessionID)
	if err != nil {
		return nil, err
	}
	if !first {
		h.logger.Debug("Lead already notified", map[string]interface{}{
			"botId":     input.BotID,
			"sessionId": input.SessionID,
		})
		return &Output{AlreadyNotified: true, Notifications: []models.Notification{}}, nil
	}
	metrics.LeadsCaptured.Inc()

	notifications := []models.Notification{
		h.notifyWhatsApp(ctx, input),
		h.notifyEmail(ctx, input),
	}

	attempted, failed := 0, 0
	for _, n := range notifications {
		metrics.NotificationsSent.WithLabelValues(n.Channel, n.Status).Inc()
		if n.Status != StatusDisabled {
			attempted++
		}
		if n.Status == StatusFailed {
			failed++
		}
	}

	// Nothing got through: release the flag so a retry can notify.
	if attempted > 0 && failed == attempted {
		if err := h.leads.Reset(ctx, input.BotID, input.SessionID); err != nil {
			h.logger.Warn("Failed to reset lead notification flag", map[string]interface{}{
				"botId":     input.BotID,
				"sessionId": input.SessionID,
				"error":     err.Error(),
			})
		}
		return nil, apperrors.NewNotificationSendFailedError("all", fmt.Errorf("%d channel(s) failed", failed))
	}

	h.logger.Info("Lead notifications dispatched", map[string]interface{}{
		"botId":     input.BotID,
		"sessionId": input.SessionID,
		"leadId":    input.Lead.LeadID,
		"attempted": attempted,
		"failed":    failed,
	})

	return &Output{Notifications: notifications}, nil
}

func (h *Handler) notifyWhatsApp(ctx context.Context, input *Input) models.Notification {
	n := newNotification(ChannelWhatsApp)
	settings := input.LeadCapture.WhatsAppNotification
	if !h.config.SMSEnabled || !settings.Enabled || settings.PhoneNumber == "" {
		n.Status = StatusDisabled
		return n
	}
	if !validation.ValidatePhone(settings.PhoneNumber) {
		h.logger.Warn("Skipping WhatsApp notification, owner phone number is malformed", map[string]interface{}{
			"phone": settings.PhoneNumber,
		})
		n.Status = StatusDisabled
		return n
	}

	if err := h.sendSMS(ctx, settings.PhoneNumber, whatsAppMessage(input)); err != nil {
		h.logger.Error("WhatsApp notification failed", map[string]interface{}{
			"error": err.Error(),
			"phone": settings.PhoneNumber,
		})
		n.Status = StatusFailed
		return n
	}
	return n
}

func (h *Handler) notifyEmail(ctx context.Context, input *Input) models.Notification {
	n := newNotification(ChannelEmail)
	settings := input.LeadCapture.EmailNotification
	if !h.config.EmailEnabled || !settings.Enabled {
		n.Status = StatusDisabled
		return n
	}
	recipients := h.validRecipients(settings.Recipients)
	if len(recipients) == 0 {
		n.Status = StatusDisabled
		return n
	}

	body, err := emailBody(input)
	if err == nil {
		err = h.sendEmail(ctx, recipients, emailSubject(input.BotName), body)
	}
	if err != nil {
		h.logger.Error("Email notification failed", map[string]interface{}{
			"error":      err.Error(),
			"recipients": settings.Recipients,
		})
		n.Status = StatusFailed
		return n
	}
	return n
}

func (h *Handler) validRecipients(recipients []string) []string {
	valid := make([]string, 0, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if validation.ValidateEmail(r) {
			valid = append(valid, r)
			continue
		}
		h.logger.Warn("Dropping malformed notification recipient", map[string]interface{}{"recipient": r})
	}
	return valid
}

func newNotification(channel string) models.Notification {
	return models.Notification{
		ID:      uuid.NewString(),
		Channel: channel,
		Status:  StatusSent,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) sendEmail(ctx context.Context, to []string, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	in := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if h.config.SenderID != "" {
		in.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(h.config.SenderID)},
		}
	}
	_, err := h.snsClient.Publish(ctx, in)
	return err
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
