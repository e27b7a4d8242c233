// internal/models/notification.go
package models

// LeadCaptureSettings controls where a chatbot escalates interested visitors.
type LeadCaptureSettings struct {
	Enabled              *bool                `json:"enabled,omitempty"`
	WhatsAppNotification WhatsAppNotification `json:"whatsappNotification"`
	EmailNotification    EmailNotification    `json:"emailNotification"`
}

// IsEnabled defaults to true when the bot never set the flag.
func (s LeadCaptureSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type WhatsAppNotification struct {
	Enabled     bool   `json:"enabled"`
	PhoneNumber string `json:"phoneNumber"`
}

type EmailNotification struct {
	Enabled    bool     `json:"enabled"`
	Recipients []string `json:"recipients"`
}

// LeadSummary is the slice of a lead record that goes into a notification.
type LeadSummary struct {
	LeadID            string  `json:"leadId"`
	BotID             string  `json:"botId"`
	SessionID         string  `json:"sessionId"`
	Name              string  `json:"name,omitempty"`
	Email             string  `json:"email,omitempty"`
	Phone             string  `json:"phone,omitempty"`
	InterestedIn      string  `json:"interestedIn,omitempty"`
	PreferredLocation string  `json:"preferredLocation,omitempty"`
	Budget            *Budget `json:"budget,omitempty"`
	QualityScore      int     `json:"qualityScore,omitempty"` // 0..5
	LastMessage       string  `json:"lastMessage,omitempty"`
}

type Notification struct {
	ID      string `json:"id"`
	Channel string `json:"channel"` // "email", "whatsapp"
	Status  string `json:"status"`  // "sent", "failed", "disabled"
	SentAt  string `json:"sentAt"`
}
