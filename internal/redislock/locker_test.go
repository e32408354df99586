package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestNewLockerNilClient(t *testing.T) {
	l := NewLocker(nil)
	assert.Nil(t, l)

	_, _, err := l.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))
}

func TestTryLockIsExclusive(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "usage:booking:abc", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "usage:booking:abc", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "usage:booking:abc", token))
	_, ok, err = l.TryLock(ctx, "usage:booking:abc", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseIgnoresForeignToken(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, "k", "someone-else"))
	assert.True(t, mr.Exists("k"))
}

func TestLockTimesOut(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = l.Lock(ctx, "k", 60*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLockRespectsContext(t *testing.T) {
	l, _ := newTestLocker(t)

	_, ok, err := l.TryLock(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "k", time.Minute)
	assert.Error(t, err)
}
