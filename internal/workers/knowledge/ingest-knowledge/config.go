// internal/workers/knowledge/ingest-knowledge/config.go
package ingestknowledge

import (
	"time"

	"chatbot-engine/internal/common/config"
)

type Config struct {
	ChunkSize int
	Overlap   int
	Timeout   time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	worker := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		ChunkSize: cfg.Retrieval.ChunkSize,
		Overlap:   cfg.Retrieval.Overlap,
		Timeout:   config.GetDuration(worker.Timeout),
	}
}
