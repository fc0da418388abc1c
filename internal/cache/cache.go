package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache is a process-local key/value store. Values are stored as given, so
// callers must store copies of anything they mutate afterwards.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	// Set stores the value. A zero expiration keeps it until evicted.
	Set(ctx context.Context, key string, value any, expiration time.Duration)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

const prefixPlanVersion = "plan_version:v1"

// PlanVersionKey identifies one immutable plan version
func PlanVersionKey(planName string, versionNumber int) string {
	return prefixPlanVersion + ":" + planName + ":" + strconv.Itoa(versionNumber)
}

// Lookup returns the cached value when it is present and of type T.
// A nil cache always misses.
func Lookup[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.Get(ctx, key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
