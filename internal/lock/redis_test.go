package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, ok, err := locker.Acquire(ctx, "powerlunch:match:conf-1:2025-03-01", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("powerlunch:match:conf-1:2025-03-01"))

	_, ok, err = locker.Acquire(ctx, "powerlunch:match:conf-1:2025-03-01", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("powerlunch:match:conf-1:2025-03-01"))

	_, ok, err = locker.Acquire(ctx, "powerlunch:match:conf-1:2025-03-01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_Expiry(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, ok, err := locker.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lock must be acquirable")

	assert.ErrorIs(t, unlock(ctx), ErrNotHeld)
	assert.True(t, mr.Exists("k"), "stale unlock must not release the new holder")
}

func TestRedisLocker_IndependentKeys(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	locker, mr := newTestLocker(t)
	mr.Close()

	_, ok, err := locker.Acquire(context.Background(), "k", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := NewClient(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mr.Close()
	_, err = NewClient(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}
