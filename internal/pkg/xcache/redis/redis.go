package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lib_store "github.com/eko/gocache/lib/v4/store"
	redis "github.com/redis/go-redis/v9"
)

const (
	// RedisType is the store type reported by GetType.
	RedisType = "redis"

	tagPattern  = "tag:%s"
	defaultTags = 720 * time.Hour
	scanBatch   = 256
)

// Client is the subset of go-redis the store uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisStore is a gocache store keeping JSON encoded values of T under a key prefix.
// Clear and Invalidate only touch keys under that prefix.
type RedisStore[T any] struct {
	client  Client
	prefix  string
	options *lib_store.Options
}

func NewRedisStore[T any](client Client, prefix string, options ...lib_store.Option) *RedisStore[T] {
	return &RedisStore[T]{
		client:  client,
		prefix:  prefix,
		options: lib_store.ApplyOptions(options...),
	}
}

func (s *RedisStore[T]) key(key any) (string, error) {
	k, ok := key.(string)
	if !ok {
		return "", fmt.Errorf("redis store: expected string key, got %T", key)
	}

	return s.prefix + k, nil
}

func (s *RedisStore[T]) Get(ctx context.Context, key any) (any, error) {
	v, _, err := s.get(ctx, key, false)
	return v, err
}

func (s *RedisStore[T]) GetWithTTL(ctx context.Context, key any) (any, time.Duration, error) {
	return s.get(ctx, key, true)
}

func (s *RedisStore[T]) get(ctx context.Context, key any, withTTL bool) (T, time.Duration, error) {
	var zero T

	k, err := s.key(key)
	if err != nil {
		return zero, 0, lib_store.NotFoundWithCause(err)
	}

	raw, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, 0, lib_store.NotFoundWithCause(err)
	}

	if err != nil {
		return zero, 0, err
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, 0, fmt.Errorf("redis store: decode %s: %w", k, err)
	}

	if !withTTL {
		return value, 0, nil
	}

	ttl, err := s.client.TTL(ctx, k).Result()
	if err != nil {
		return zero, 0, err
	}

	return value, ttl, nil
}

func (s *RedisStore[T]) Set(ctx context.Context, key any, value any, options ...lib_store.Option) error {
	opts := lib_store.ApplyOptionsWithDefault(s.options, options...)

	k, err := s.key(key)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis store: encode %s: %w", k, err)
	}

	if err := s.client.Set(ctx, k, raw, opts.Expiration).Err(); err != nil {
		return err
	}

	ttl := opts.TagsTTL
	if ttl == 0 {
		ttl = defaultTags
	}

	for _, tag := range opts.Tags {
		tagKey := s.prefix + fmt.Sprintf(tagPattern, tag)
		s.client.SAdd(ctx, tagKey, k)
		s.client.Expire(ctx, tagKey, ttl)
	}

	return nil
}

func (s *RedisStore[T]) Delete(ctx context.Context, key any) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}

	return s.client.Del(ctx, k).Err()
}

// Invalidate drops every key stored with one of the given tags.
func (s *RedisStore[T]) Invalidate(ctx context.Context, options ...lib_store.InvalidateOption) error {
	opts := lib_store.ApplyInvalidateOptions(options...)

	for _, tag := range opts.Tags {
		tagKey := s.prefix + fmt.Sprintf(tagPattern, tag)

		keys, err := s.client.SMembers(ctx, tagKey).Result()
		if err != nil {
			return err
		}

		if err := s.client.Del(ctx, append(keys, tagKey)...).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Clear removes every key under the prefix.
func (s *RedisStore[T]) Clear(ctx context.Context) error {
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}

		cursor = next
	}
}

func (s *RedisStore[T]) GetType() string {
	return RedisType
}
