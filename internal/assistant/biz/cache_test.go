package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/askdocs/internal/model"
)

func TestQueryCache_DisabledIsInert(t *testing.T) {
	cache := NewQueryCache(nil, nil)
	ctx := context.Background()

	assert.Nil(t, cache.Get(ctx, "query"))
	cache.Set(ctx, "query", &model.Answer{Answer: "a"})
	assert.Nil(t, cache.Get(ctx, "query"))

	stats := cache.Stats(ctx)
	assert.Equal(t, false, stats["enabled"])
}

func TestQueryCache_EnabledWithoutClientIsInert(t *testing.T) {
	cache := NewQueryCache(nil, &QueryCacheConfig{Enabled: true, KeyPrefix: "askdocs:qa:"})
	ctx := context.Background()

	assert.Nil(t, cache.Get(ctx, "query"))
	cache.Set(ctx, "query", &model.Answer{Answer: "a"})
}
