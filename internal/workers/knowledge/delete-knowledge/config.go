// internal/workers/knowledge/delete-knowledge/config.go
package deleteknowledge

import (
	"time"

	"chatbot-engine/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	worker := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout: config.GetDuration(worker.Timeout),
	}
}
