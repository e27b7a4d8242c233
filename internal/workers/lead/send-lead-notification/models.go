// internal/workers/lead/send-lead-notification/models.go
package sendleadnotification

import "chatbot-engine/internal/models"

type Input struct {
	BotID       string                     `json:"botId"`
	SessionID   string                     `json:"sessionId"`
	BotName     string                     `json:"botName"`
	Lead        models.LeadSummary         `json:"lead"`
	LeadCapture models.LeadCaptureSettings `json:"leadCapture"`
	CapturedAt  string                     `json:"capturedAt,omitempty"`
}

type Output struct {
	AlreadyNotified bool                  `json:"alreadyNotified"`
	Notifications   []models.Notification `json:"notifications"`
}

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"

	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
