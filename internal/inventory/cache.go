package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"warehouse-assistant/internal/common/logger"
)

const defaultCachePrefix = "warehouse:inventory:"

// CachedCollaborator keeps catalog snapshots and summary metrics in Redis
// for a short TTL. Stock lookups and low-stock lists are always fresh, and
// a stock update drops both cached views. Cache failures fall through to the
// inner collaborator.
type CachedCollaborator struct {
	inner  Collaborator
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

func NewCachedCollaborator(inner Collaborator, client redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *CachedCollaborator {
	if prefix == "" {
		prefix = defaultCachePrefix
	}
	return &CachedCollaborator{inner: inner, client: client, ttl: ttl, prefix: prefix, log: log}
}

func (c *CachedCollaborator) catalogKey() string { return c.prefix + "catalog" }
func (c *CachedCollaborator) summaryKey() string { return c.prefix + "summary" }

func (c *CachedCollaborator) LookupProduct(ctx context.Context, nameOrSKU string) (*ProductRecord, error) {
	return c.inner.LookupProduct(ctx, nameOrSKU)
}

func (c *CachedCollaborator) CatalogSnapshot(ctx context.Context) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if c.load(ctx, c.catalogKey(), &entries) {
		return entries, nil
	}

	entries, err := c.inner.CatalogSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, c.catalogKey(), entries)
	return entries, nil
}

func (c *CachedCollaborator) LowStockItems(ctx context.Context) ([]ProductRecord, error) {
	return c.inner.LowStockItems(ctx)
}

func (c *CachedCollaborator) SummaryMetrics(ctx context.Context) (*SummaryMetrics, error) {
	var s SummaryMetrics
	if c.load(ctx, c.summaryKey(), &s) {
		return &s, nil
	}

	fresh, err := c.inner.SummaryMetrics(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, c.summaryKey(), fresh)
	return fresh, nil
}

func (c *CachedCollaborator) ApplyStockUpdate(ctx context.Context, sku string, newQuantity int) error {
	if err := c.inner.ApplyStockUpdate(ctx, sku, newQuantity); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.catalogKey(), c.summaryKey()).Err(); err != nil {
		c.log.Warn("cache invalidation failed", map[string]interface{}{"sku": sku, "error": err.Error()})
	}
	return nil
}

func (c *CachedCollaborator) load(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("cache entry corrupt", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (c *CachedCollaborator) store(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
