package cache

import (
	"context"
	"time"

	"github.com/flexprice/planshift/internal/config"
	"github.com/getsentry/sentry-go"
	goCache "github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration      = 30 * time.Minute
	DefaultCleanupInterval = time.Hour
)

// InMemoryCache is a Cache backed by github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

// NewInMemoryCache creates the cache. When caching is disabled in config
// every call is a no-op miss.
func NewInMemoryCache(cfg *config.Configuration) Cache {
	return &InMemoryCache{
		cache:   goCache.New(DefaultExpiration, DefaultCleanupInterval),
		enabled: cfg == nil || cfg.Cache.Enabled,
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (any, bool) {
	if !c.enabled {
		return nil, false
	}
	span := startSpan(ctx, "get", key)
	v, ok := c.cache.Get(key)
	if span != nil {
		span.SetData("hit", ok)
		span.Finish()
	}
	return v, ok
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value any, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = goCache.NoExpiration
	}
	span := startSpan(ctx, "set", key)
	c.cache.Set(key, value, expiration)
	if span != nil {
		span.Finish()
	}
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	if c.enabled {
		c.cache.Delete(key)
	}
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}

// startSpan opens a sentry span when the context carries a hub
func startSpan(ctx context.Context, operation, key string) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}
	span := sentry.StartSpan(ctx, "cache.inmemory."+operation)
	span.Op = "db.cache"
	span.Description = "cache.inmemory." + operation
	span.SetData("key", key)
	return span
}
