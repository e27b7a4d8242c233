// internal/workers/catalog/refresh-property-catalog/models.go
package refreshpropertycatalog

type Input struct {
	BotID string `json:"botId"`
}

type Output struct {
	BotID            string `json:"botId"`
	ActiveProperties int    `json:"activeProperties"`
	RefreshedAt      string `json:"refreshedAt"`
}
