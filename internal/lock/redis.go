package lock

import (
	"context"
	"time"

	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/types"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript moves the expiry only when the key still holds our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	if tonumber(ARGV[2]) > 0 then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return redis.call("PERSIST", KEYS[1]) + 1
end
return 0
`)

// RedisLocker implements Locker with SET NX PX so the lock holds across processes
type RedisLocker struct {
	rdb    redis.UniversalClient
	logger *logger.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, logger *logger.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, logger: logger}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := types.GenerateUUID()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		l.logger.Debugw("lock already held", "key", key)
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, l.rdb, []string{key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	if n == 0 {
		l.logger.Warnw("lock lease lost", "key", key)
	}
	return n > 0, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
}
