package xcache

import (
	"context"
	"errors"

	"github.com/eko/gocache/lib/v4/store"
)

// ErrCacheNotConfigured is the cause of every miss on a noop cache.
var ErrCacheNotConfigured = errors.New("cache not configured")

type noopCache[T any] struct{}

// NewNoop returns a cache that stores nothing. Get always misses.
func NewNoop[T any]() Cache[T] {
	return noopCache[T]{}
}

func (noopCache[T]) Get(context.Context, any) (T, error) {
	var zero T
	return zero, store.NotFoundWithCause(ErrCacheNotConfigured)
}

func (noopCache[T]) Set(context.Context, any, T, ...Option) error {
	return nil
}

func (noopCache[T]) Delete(context.Context, any) error {
	return nil
}

func (noopCache[T]) Invalidate(context.Context, ...store.InvalidateOption) error {
	return nil
}

func (noopCache[T]) Clear(context.Context) error {
	return nil
}

func (noopCache[T]) GetType() string {
	return "noop"
}
