// internal/workers/chat/chat-turn/config.go
package chatturn

import (
	"time"

	"chatbot-engine/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MaxMessageLength bounds the visitor message; longer input is rejected.
	MaxMessageLength int
}

func LoadConfig(cfg *config.Config) *Config {
	worker := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout:          config.GetDuration(worker.Timeout),
		MaxMessageLength: 4000,
	}
}
