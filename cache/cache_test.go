package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping redis tests")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewCacheRequiresClient(t *testing.T) {
	_, err := NewCache(nil)
	assert.Error(t, err)
}

func TestCacheSetGetDelete(t *testing.T) {
	client := redisForTest(t)
	c, err := NewCache(client)
	require.NoError(t, err)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.Set(ctx, key, "value", time.Minute))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	require.NoError(t, c.Delete(ctx, key))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheDeleteBatch(t *testing.T) {
	client := redisForTest(t)
	c, err := NewCache(client)
	require.NoError(t, err)
	ctx := context.Background()
	prefix := "test:" + uuid.NewString()

	for _, suffix := range []string{":a", ":b", ":c"} {
		require.NoError(t, c.Set(ctx, prefix+suffix, "value", time.Minute))
	}
	require.NoError(t, c.DeleteBatch(ctx))
	require.NoError(t, c.DeleteBatch(ctx, prefix+":a", prefix+":b"))

	for suffix, want := range map[string]string{":a": "", ":b": "", ":c": "value"} {
		got, err := c.Get(ctx, prefix+suffix)
		require.NoError(t, err)
		assert.Equal(t, want, got, suffix)
	}
	require.NoError(t, c.Delete(ctx, prefix+":c"))
}

func TestRedisLockerExclusive(t *testing.T) {
	client := redisForTest(t)
	locker := NewRedisLocker(client)
	locker.retryDelay = time.Millisecond
	ctx := context.Background()
	key := "test_lock:" + uuid.NewString()

	release, err := locker.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key, 10*time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, release(ctx))
	release, err = locker.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}
