package biz

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/internal/pkg/textutil"
	"github.com/kart-io/askdocs/pkg/log"
)

// QueryCacheConfig configures the answer cache.
type QueryCacheConfig struct {
	// Enabled turns caching on; with a nil redis client the cache is
	// inert regardless.
	Enabled bool
	// TTL is the entry lifetime.
	TTL time.Duration
	// KeyPrefix namespaces the cache keys.
	KeyPrefix string
}

// QueryCache caches assembled QA answers in Redis, keyed by the
// SHA-256 of the query text. Any cache failure falls through to the
// pipeline.
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache creates a QueryCache.
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{
			Enabled:   false,
			TTL:       time.Hour,
			KeyPrefix: "askdocs:qa:",
		}
	}
	return &QueryCache{redis: redis, config: config}
}

func (c *QueryCache) enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}

func (c *QueryCache) key(query string) string {
	return c.config.KeyPrefix + textutil.HashString(query)
}

// Get returns the cached answer for query, or nil on miss, disabled
// cache, or any cache error.
func (c *QueryCache) Get(ctx context.Context, query string) *model.Answer {
	if !c.enabled() {
		return nil
	}

	key := c.key(query)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Warnw("cache read failed", "error", err.Error(), "key", key)
		}
		return nil
	}

	var answer model.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		log.Warnw("dropping corrupt cache entry", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil
	}
	return &answer
}

// Set stores an answer; failures are logged and ignored.
func (c *QueryCache) Set(ctx context.Context, query string, answer *model.Answer) {
	if !c.enabled() || answer == nil {
		return
	}

	data, err := json.Marshal(answer)
	if err != nil {
		log.Warnw("cache marshal failed", "error", err.Error())
		return
	}
	if err := c.redis.Set(ctx, c.key(query), data, c.config.TTL).Err(); err != nil {
		log.Warnw("cache write failed", "error", err.Error())
	}
}

// Stats reports cache configuration and entry count.
func (c *QueryCache) Stats(ctx context.Context) map[string]any {
	if !c.enabled() {
		return map[string]any{"enabled": false}
	}

	keyCount := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keyCount++
	}
	if err := iter.Err(); err != nil {
		log.Warnw("cache scan failed", "error", err.Error())
	}

	return map[string]any{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}
}
