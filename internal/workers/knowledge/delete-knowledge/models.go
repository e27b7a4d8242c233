// internal/workers/knowledge/delete-knowledge/models.go
package deleteknowledge

type Input struct {
	BotID           string `json:"botId"`
	KnowledgeBaseID string `json:"knowledgeBaseId"`
}

type Output struct {
	KnowledgeBaseID string `json:"knowledgeBaseId"`
	Deleted         bool   `json:"deleted"`
}
