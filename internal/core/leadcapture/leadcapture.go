// Package leadcapture decides when a conversation should be escalated to a human.
package leadcapture

import (
	"strings"

	"chatbot-engine/internal/models"
)

const DefaultWindow = 3

// Keywords signal purchase intent.
var Keywords = []string{
	"interested", "price", "visit", "schedule", "contact",
	"number", "email", "call", "meeting", "details",
}

// ShouldCapture reports whether any of the last three messages mentions an
// intent keyword. Conversations shorter than three messages never qualify.
func ShouldCapture(messages []models.Message) bool {
	return ShouldCaptureWindow(messages, DefaultWindow)
}

// ShouldCaptureWindow is ShouldCapture over the last window messages.
func ShouldCaptureWindow(messages []models.Message, window int) bool {
	if window <= 0 || len(messages) < window {
		return false
	}

	for _, m := range models.LastN(messages, window) {
		content := strings.ToLower(m.Content)
		for _, kw := range Keywords {
			if strings.Contains(content, kw) {
				return true
			}
		}
	}
	return false
}
