package cache

import (
	"context"
	"testing"

	"github.com/flexprice/planshift/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryCacheLookup(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(&config.Configuration{Cache: config.CacheConfig{Enabled: true}})

	key := PlanVersionKey("creator", 2)
	assert.Equal(t, "plan_version:v1:creator:2", key)

	_, ok := Lookup[string](ctx, c, key)
	assert.False(t, ok)

	c.Set(ctx, key, "v2", 0)
	v, ok := Lookup[string](ctx, c, key)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	_, ok = Lookup[int](ctx, c, key)
	assert.False(t, ok, "a value of another type is a miss")

	c.Delete(ctx, key)
	_, ok = Lookup[string](ctx, c, key)
	assert.False(t, ok)
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(&config.Configuration{})

	c.Set(ctx, "k", "v", 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	_, ok = Lookup[string](ctx, nil, "k")
	assert.False(t, ok)
}
