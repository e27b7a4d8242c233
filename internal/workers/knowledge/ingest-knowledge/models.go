// internal/workers/knowledge/ingest-knowledge/models.go
package ingestknowledge

type Input struct {
	BotID    string `json:"botId"`
	Filename string `json:"filename"`
	Source   string `json:"source"`
	Content  string `json:"content"`
}

type Output struct {
	KnowledgeBaseID string `json:"knowledgeBaseId"`
	ChunksProcessed int    `json:"chunksProcessed"`
	UploadedAt      string `json:"uploadedAt"`
}

const (
	SourceUpload = "upload"
	SourceText   = "text"
)
