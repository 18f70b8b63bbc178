package xcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	cachelib "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/looplj/visgate/internal/log"
	redis_store "github.com/looplj/visgate/internal/pkg/xcache/redis"
)

const (
	defaultMemoryExpiration = 5 * time.Minute
	defaultCleanupInterval  = 10 * time.Minute
	defaultRedisExpiration  = 30 * time.Minute
	defaultRedisKeyPrefix   = "visgate:cache:"
)

// Cache is the gocache interface: Get, Set, Delete, Invalidate, Clear and GetType.
type Cache[T any] = cachelib.CacheInterface[T]

type SetterCache[T any] = cachelib.SetterCacheInterface[T]

type Option = store.Option

func WithExpiration(expiration time.Duration) Option {
	return store.WithExpiration(expiration)
}

// IsNotFound reports whether err is a cache miss, including a miss on a noop cache.
func IsNotFound(err error) bool {
	notFound := &store.NotFound{}
	return errors.As(err, &notFound) || errors.Is(err, store.NotFound{})
}

// NewMemory creates an in-memory cache backed by patrickmn/go-cache.
func NewMemory[T any](client *gocache.Cache, options ...Option) SetterCache[T] {
	return cachelib.New[T](gocache_store.NewGoCache(client, options...))
}

// NewMemoryWithOptions builds the go-cache client from the expiration and cleanup interval.
func NewMemoryWithOptions[T any](expiration, cleanupInterval time.Duration) SetterCache[T] {
	client := gocache.New(expiration, cleanupInterval)
	return NewMemory[T](client, store.WithExpiration(expiration))
}

// NewRedis creates a cache storing JSON values under prefix.
func NewRedis[T any](client *redis.Client, prefix string, options ...Option) SetterCache[T] {
	return cachelib.New[T](redis_store.NewRedisStore[T](client, prefix, options...))
}

// NewTwoLevel reads memory first, then redis, and back-fills memory on a redis hit.
func NewTwoLevel[T any](memory, redis SetterCache[T]) Cache[T] {
	return cachelib.NewChain[T](memory, redis)
}

// New builds a typed cache from cfg. client is only used by the redis and two-level
// modes and must be non-nil for them.
func New[T any](cfg Config, client *redis.Client) (Cache[T], error) {
	ctx := context.Background()

	switch cfg.Mode {
	case ModeMemory, ModeRedis, ModeTwoLevel:
	default:
		log.Info(ctx, "cache disabled", log.String("mode", cfg.Mode))
		return NewNoop[T](), nil
	}

	if cfg.UsesRedis() && client == nil {
		return nil, fmt.Errorf("xcache: mode %s requires redis", cfg.Mode)
	}

	memory := func() SetterCache[T] {
		return NewMemoryWithOptions[T](
			defaultIfZero(cfg.Memory.Expiration, defaultMemoryExpiration),
			defaultIfZero(cfg.Memory.CleanupInterval, defaultCleanupInterval),
		)
	}

	remote := func() SetterCache[T] {
		prefix := cfg.Redis.KeyPrefix
		if prefix == "" {
			prefix = defaultRedisKeyPrefix
		}

		return NewRedis[T](client, prefix, store.WithExpiration(defaultIfZero(cfg.Redis.Expiration, defaultRedisExpiration)))
	}

	log.Info(ctx, "cache enabled", log.String("mode", cfg.Mode))

	switch cfg.Mode {
	case ModeRedis:
		return remote(), nil
	case ModeTwoLevel:
		return NewTwoLevel(memory(), remote()), nil
	default:
		return memory(), nil
	}
}

func defaultIfZero(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}

	return d
}
