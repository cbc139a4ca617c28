// Package cache wraps go-redis with typed get/set helpers for
// content-hash-addressed config records and watermark reads. The process
// constructs a Cache at startup, but neither the orchestrator nor the
// ingestion engine reads or writes through it; they go to Postgres.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hoangnph/vnquant/internal/domain"
)

// Cache is a thin typed wrapper over a redis client.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to addr/db with password (empty if none).
func New(addr, password string, db int, ttl time.Duration) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl: ttl,
	}
}

// Ping verifies connectivity at startup.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func configKey(contentHash string) string {
	return fmt.Sprintf("vnquant:config:%s", contentHash)
}

// GetConfig returns a cached config record by content hash, or
// (zero, false, nil) on a cache miss.
func (c *Cache) GetConfig(ctx context.Context, contentHash string) (domain.ConfigRecord, bool, error) {
	raw, err := c.rdb.Get(ctx, configKey(contentHash)).Bytes()
	if err == redis.Nil {
		return domain.ConfigRecord{}, false, nil
	}
	if err != nil {
		return domain.ConfigRecord{}, false, fmt.Errorf("cache: get config: %w", err)
	}
	var rec domain.ConfigRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.ConfigRecord{}, false, fmt.Errorf("cache: decode config: %w", err)
	}
	return rec, true, nil
}

// SetConfig caches a resolved config record for ttl.
func (c *Cache) SetConfig(ctx context.Context, rec domain.ConfigRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: encode config: %w", err)
	}
	return c.rdb.Set(ctx, configKey(rec.ContentHash), raw, c.ttl).Err()
}

func watermarkKey(symbol, source string) string {
	return fmt.Sprintf("vnquant:watermark:%s:%s", source, symbol)
}

// GetWatermark returns a cached watermark read, or a miss.
func (c *Cache) GetWatermark(ctx context.Context, symbol, source string) (domain.Watermark, bool, error) {
	raw, err := c.rdb.Get(ctx, watermarkKey(symbol, source)).Bytes()
	if err == redis.Nil {
		return domain.Watermark{}, false, nil
	}
	if err != nil {
		return domain.Watermark{}, false, fmt.Errorf("cache: get watermark: %w", err)
	}
	var w domain.Watermark
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Watermark{}, false, fmt.Errorf("cache: decode watermark: %w", err)
	}
	return w, true, nil
}

// SetWatermark caches a watermark read for ttl. Entries are never
// explicitly deleted; they are replaced only by a later SetWatermark for
// the same symbol and source, or expire.
func (c *Cache) SetWatermark(ctx context.Context, w domain.Watermark) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("cache: encode watermark: %w", err)
	}
	return c.rdb.Set(ctx, watermarkKey(w.Symbol, string(w.Source)), raw, c.ttl).Err()
}
