// internal/models/knowledge.go
package models

import "time"

// KnowledgeChunk is one embedded window of an ingested document.
// Embedding length is constant across all chunks of one chatbot.
type KnowledgeChunk struct {
	Text       string    `json:"text"`
	Embedding  []float64 `json:"embedding,omitempty"`
	SourceID   string    `json:"sourceId"`
	Filename   string    `json:"filename,omitempty"`
	ChunkIndex int       `json:"chunkIndex"`
}

// KnowledgeDocument groups the chunks produced from a single upload.
type KnowledgeDocument struct {
	ID         string           `json:"id"`
	BotID      string           `json:"botId"`
	Source     string           `json:"source"` // "pdf", "text", "url", "manual"
	Filename   string           `json:"filename"`
	Content    string           `json:"content"`
	Chunks     []KnowledgeChunk `json:"chunks"`
	UploadedAt time.Time        `json:"uploadedAt"`
}

// RankedContext is a scored chunk produced for a single query. It is never persisted.
type RankedContext struct {
	Text       string                 `json:"text"`
	Similarity float64                `json:"similarity"`
	Source     string                 `json:"source"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
