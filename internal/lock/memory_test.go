package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	key := MigrationKey("mig_1")

	token, ok, err := l.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// another key is independent
	_, ok, err = l.TryAcquire(ctx, MigrationKey("mig_2"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, key, token))
	_, ok, err = l.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLockerReleaseWithStaleToken(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	key := MigrationKey("mig_1")

	_, ok, err := l.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, key, "not-the-token"))
	_, ok, _ = l.TryAcquire(ctx, key, time.Minute)
	assert.False(t, ok)
}

func TestMemoryLockerExpiry(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, ok, err := l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, err = l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLockerExtend(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	token, ok, err := l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// renewing before expiry keeps the key held past the original ttl
	now = now.Add(900 * time.Millisecond)
	ok, err = l.Extend(ctx, "k", token, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(900 * time.Millisecond)
	_, ok, err = l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Extend(ctx, "k", "not-the-token", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLockerExtendAfterTakeover(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale, ok, err := l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, err = l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Extend(ctx, "k", stale, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Extend(ctx, "missing", stale, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}
