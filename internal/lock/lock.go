// Package lock provides the per-migration execution lock. A migration plan may
// only have one executor at a time, across processes when the redis backend
// is used.
package lock

import (
	"context"
	"time"
)

// Locker hands out exclusive, expiring leases on string keys
type Locker interface {
	// TryAcquire does not block. ok is false when someone else holds the key.
	// The returned token must be passed to Release.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Extend pushes the expiry of a held lease to ttl from now. ok is false
	// when the lease was lost, i.e. the key is gone or held with another token.
	Extend(ctx context.Context, key, token string, ttl time.Duration) (ok bool, err error)
	// Release frees the key if it is still held with the given token
	Release(ctx context.Context, key, token string) error
}

// MigrationKey is the lock key guarding the execution of one migration plan
func MigrationKey(migrationID string) string {
	return "planshift:migration:" + migrationID
}
