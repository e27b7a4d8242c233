// internal/workers/lead/send-lead-notification/config.go
package sendleadnotification

import (
	"time"

	"chatbot-engine/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SenderID     string
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	worker := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
		SenderID:     cfg.Notifications.SMS.SenderID,
		Timeout:      config.GetDuration(worker.Timeout),
	}
}
