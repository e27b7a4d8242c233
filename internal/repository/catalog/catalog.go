// Package catalog reads a bot's active property listings from Elasticsearch
// through a Redis read-through cache.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/internal/models"
)

const (
	cacheKeyPrefix = "catalog:active:"
	maxProperties  = 1000
)

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.PropertyRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type Catalog struct {
	es    *elasticsearch.Client
	cache redis.Cmdable
	index string
	ttl   time.Duration
	log   logger.Logger
}

// New builds a catalog. A nil cache disables caching.
func New(es *elasticsearch.Client, cache redis.Cmdable, index string, ttl time.Duration, log logger.Logger) *Catalog {
	return &Catalog{es: es, cache: cache, index: index, ttl: ttl, log: log}
}

func cacheKey(botID string) string {
	return cacheKeyPrefix + botID
}

// ActiveProperties returns the bot's active listings in index order.
func (c *Catalog) ActiveProperties(ctx context.Context, botID string) ([]models.PropertyRecord, error) {
	if props, ok := c.fromCache(ctx, botID); ok {
		return props, nil
	}

	props, err := c.search(ctx, botID)
	if err != nil {
		return nil, err
	}

	c.storeCache(ctx, botID, props)
	return props, nil
}

// Invalidate drops the cached listings of a bot.
func (c *Catalog) Invalidate(ctx context.Context, botID string) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Del(ctx, cacheKey(botID)).Err(); err != nil {
		return fmt.Errorf("%w: invalidate cache: %v", apperrors.ErrCatalogUnavailable, err)
	}
	return nil
}

func (c *Catalog) fromCache(ctx context.Context, botID string) ([]models.PropertyRecord, bool) {
	if c.cache == nil {
		return nil, false
	}

	raw, err := c.cache.Get(ctx, cacheKey(botID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Catalog cache read failed", map[string]interface{}{"botId": botID, "error": err.Error()})
			metrics.CatalogCacheLookups.WithLabelValues("error").Inc()
		} else {
			metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()
		}
		return nil, false
	}

	var props []models.PropertyRecord
	if err := json.Unmarshal(raw, &props); err != nil {
		c.log.Warn("Catalog cache entry corrupt", map[string]interface{}{"botId": botID, "error": err.Error()})
		metrics.CatalogCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}

	metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
	return props, true
}

func (c *Catalog) storeCache(ctx context.Context, botID string, props []models.PropertyRecord) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(botID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Catalog cache write failed", map[string]interface{}{"botId": botID, "error": err.Error()})
	}
}

func (c *Catalog) search(ctx context.Context, botID string) ([]models.PropertyRecord, error) {
	query := map[string]interface{}{
		"size": maxProperties,
		"sort": []interface{}{"_doc"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"botId": botID}},
					map[string]interface{}{"term": map[string]interface{}{"isActive": true}},
				},
			},
		},
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query); err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  &body,
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCatalogUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search failed: %s", apperrors.ErrCatalogUnavailable, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode search: %v", apperrors.ErrCatalogUnavailable, err)
	}

	props := make([]models.PropertyRecord, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		props = append(props, h.Source)
	}
	return props, nil
}
