// internal/models/conversation.go
package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation window.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LastN returns the trailing n messages without copying.
func LastN(messages []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

// AISettings are the per-chatbot generation settings.
type AISettings struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
}

// UsageMetrics reports provider token accounting for one completion.
type UsageMetrics struct {
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
	Model            string `json:"model"`
}
