package xcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestNew_Disabled(t *testing.T) {
	for _, mode := range []string{"", "bogus"} {
		cache, err := New[[]string](Config{Mode: mode}, nil)
		require.NoError(t, err)
		assert.Equal(t, "noop", cache.GetType())

		require.NoError(t, cache.Set(context.Background(), "k", []string{"a"}))

		_, err = cache.Get(context.Background(), "k")
		assert.True(t, IsNotFound(err))
	}
}

func TestNew_RedisModesNeedClient(t *testing.T) {
	for _, mode := range []string{ModeRedis, ModeTwoLevel} {
		_, err := New[string](Config{Mode: mode}, nil)
		assert.Error(t, err, mode)
	}
}

func TestNew_Memory(t *testing.T) {
	cache, err := New[[]string](Config{Mode: ModeMemory}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = cache.Get(ctx, "bob")
	assert.True(t, IsNotFound(err))

	require.NoError(t, cache.Set(ctx, "bob", []string{"doc-1"}))

	got, err := cache.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, got)

	require.NoError(t, cache.Delete(ctx, "bob"))

	_, err = cache.Get(ctx, "bob")
	assert.True(t, IsNotFound(err))
}

func TestNew_Redis(t *testing.T) {
	client, mr := newRedisClient(t)

	cache, err := New[[]string](Config{
		Mode:  ModeRedis,
		Redis: RedisConfig{Expiration: time.Minute, KeyPrefix: "vg:"},
	}, client)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "bob", []string{"doc-1"}))

	assert.True(t, mr.Exists("vg:bob"))
	assert.Equal(t, time.Minute, mr.TTL("vg:bob"))

	got, err := cache.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, got)
}

func TestNew_TwoLevelBackfillsMemory(t *testing.T) {
	client, mr := newRedisClient(t)

	cache, err := New[[]string](Config{Mode: ModeTwoLevel}, client)
	require.NoError(t, err)

	ctx := context.Background()

	// Written by another instance.
	require.NoError(t, mr.Set(defaultRedisKeyPrefix+"bob", `["tag:finance"]`))

	got, err := cache.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag:finance"}, got)

	mr.FlushAll()

	assert.Eventually(t, func() bool {
		got, err := cache.Get(ctx, "bob")
		return err == nil && len(got) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDefaultIfZero(t *testing.T) {
	assert.Equal(t, time.Minute, defaultIfZero(0, time.Minute))
	assert.Equal(t, time.Minute, defaultIfZero(-time.Second, time.Minute))
	assert.Equal(t, time.Second, defaultIfZero(time.Second, time.Minute))
}
