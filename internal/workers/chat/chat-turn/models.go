// internal/workers/chat/chat-turn/models.go
package chatturn

import (
	"chatbot-engine/internal/models"
	"chatbot-engine/internal/pipeline"
)

type Input struct {
	BotID        string            `json:"botId"`
	SessionID    string            `json:"sessionId"`
	Message      string            `json:"message"`
	History      []models.Message  `json:"history"`
	SystemPrompt string            `json:"systemPrompt"`
	AISettings   models.AISettings `json:"aiSettings"`
}

type Output struct {
	Response          string                `json:"response"`
	SessionID         string                `json:"sessionId"`
	PropertyMatches   []PropertyMatch       `json:"propertyMatches"`
	Sources           []string              `json:"sources"`
	Usage             models.UsageMetrics   `json:"usage"`
	ShouldCaptureLead bool                  `json:"shouldCaptureLead"`
	Lead              *pipeline.LeadDetails `json:"lead,omitempty"`
	Messages          []models.Message      `json:"messages"`
}

// PropertyMatch is the listing summary handed back to the widget.
type PropertyMatch struct {
	ID       string   `json:"id"`
	Location string   `json:"location"`
	Price    float64  `json:"price"`
	Currency string   `json:"currency"`
	Bedrooms int      `json:"bedrooms"`
	Images   []string `json:"images"`
}
