// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"chatbot-engine/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// propertyMapping indexes bot id and active flag as exact terms.
const propertyMapping = `{
	"mappings": {
		"properties": {
			"id":           {"type": "keyword"},
			"botId":        {"type": "keyword"},
			"isActive":     {"type": "boolean"},
			"location":     {"type": "text"},
			"city":         {"type": "text"},
			"country":      {"type": "keyword"},
			"propertyType": {"type": "keyword"},
			"price":        {"type": "double"},
			"currency":     {"type": "keyword"},
			"bedrooms":     {"type": "integer"},
			"size":         {"type": "double"},
			"sizeUnit":     {"type": "keyword"},
			"features":     {"type": "keyword"},
			"imageLinks":   {"type": "keyword", "index": false}
		}
	}
}`

// ElasticsearchClient wraps the Elasticsearch client
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// EnsurePropertyIndex creates the property index with its mapping when absent.
func (c *ElasticsearchClient) EnsurePropertyIndex(ctx context.Context, index string) error {
	exists, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index check failed: %w", err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(propertyMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index create failed: %w", err)
	}
	defer res.Body.Close()

	// a concurrent worker may have created it first
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("elasticsearch index create error: %s", res.Status())
	}
	return nil
}
