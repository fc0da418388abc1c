package lock

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/planshift/internal/types"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is a process local Locker
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

func (l *MemoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return "", false, nil
	}

	token := types.GenerateUUID()
	l.leases[key] = lease{token: token, expiresAt: expiry(now, ttl)}
	return token, true, nil
}

func (l *MemoryLocker) Extend(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	held, ok := l.leases[key]
	if !ok || held.token != token {
		return false, nil
	}
	held.expiresAt = expiry(l.now(), ttl)
	l.leases[key] = held
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.leases[key]; ok && held.token == token {
		delete(l.leases, key)
	}
	return nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		// no ttl means held until released
		return time.Time{}.AddDate(9999, 0, 0)
	}
	return now.Add(ttl)
}
