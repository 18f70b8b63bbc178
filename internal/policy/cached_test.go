package policy

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/looplj/visgate/internal/pkg/xcache"
)

type countingStore struct {
	calls   atomic.Int32
	release chan struct{}

	mu     sync.Mutex
	grants map[string][]string
	err    error
}

func (s *countingStore) Grants(_ context.Context, subject string) ([]string, error) {
	s.calls.Add(1)

	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	return s.grants[subject], nil
}

func (s *countingStore) set(subject string, grants ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants[subject] = grants
}

func memoryCache(t *testing.T) xcache.Cache[[]string] {
	t.Helper()

	cache, err := xcache.New[[]string](xcache.Config{Mode: xcache.ModeMemory}, nil)
	require.NoError(t, err)

	return cache
}

func TestCachedStore_CachesGrants(t *testing.T) {
	next := &countingStore{grants: map[string][]string{"bob": {"doc-1"}}}
	s := NewCachedStore(next, memoryCache(t), nil)
	ctx := context.Background()

	for range 3 {
		grants, err := s.Grants(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"doc-1"}, grants)
	}

	assert.EqualValues(t, 1, next.calls.Load())

	// Empty grant lists are cached too.
	for range 2 {
		grants, err := s.Grants(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, grants)
	}

	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedStore_ReturnsCopies(t *testing.T) {
	next := &countingStore{grants: map[string][]string{"bob": {"doc-1"}}}
	s := NewCachedStore(next, memoryCache(t), nil)

	grants, err := s.Grants(context.Background(), "bob")
	require.NoError(t, err)

	grants[0] = "mutated"

	grants, err = s.Grants(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, grants)
}

func TestCachedStore_SharesConcurrentLoads(t *testing.T) {
	next := &countingStore{
		grants:  map[string][]string{"bob": {"doc-1"}},
		release: make(chan struct{}),
	}
	s := NewCachedStore(next, xcache.NewNoop[[]string](), nil)

	var g errgroup.Group

	for range 16 {
		g.Go(func() error {
			grants, err := s.Grants(context.Background(), "bob")
			if err != nil {
				return err
			}

			if len(grants) != 1 {
				return errors.New("unexpected grants")
			}

			return nil
		})
	}

	require.Eventually(t, func() bool { return next.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(next.release)

	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, next.calls.Load(), int32(16))
}

func TestCachedStore_ErrorsAreNotCached(t *testing.T) {
	down := errors.New("down")
	next := &countingStore{grants: map[string][]string{"bob": {"doc-1"}}, err: down}
	s := NewCachedStore(next, memoryCache(t), nil)

	_, err := s.Grants(context.Background(), "bob")
	assert.ErrorIs(t, err, down)

	next.mu.Lock()
	next.err = nil
	next.mu.Unlock()

	grants, err := s.Grants(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, grants)
}

func TestCachedStore_EvictsOnChange(t *testing.T) {
	next := &countingStore{grants: map[string][]string{"bob": {"doc-1"}}}
	notifier := NewMemoryNotifier(8)

	s := NewCachedStore(next, memoryCache(t), notifier)
	s.Start()
	s.Start()

	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	grants, err := s.Grants(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, grants)

	next.set("bob", "doc-1", "doc-2")
	require.NoError(t, notifier.Notify(ctx, Change{Subject: "bob"}))

	assert.Eventually(t, func() bool {
		grants, err := s.Grants(ctx, "bob")
		return err == nil && len(grants) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

// gatedStore reads the grants first and then waits, so the answer it eventually returns
// can be older than a revoke that happens while it waits.
type gatedStore struct {
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	grants []string
}

func (s *gatedStore) Grants(context.Context, string) ([]string, error) {
	s.mu.Lock()
	grants := slices.Clone(s.grants)
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}

	return grants, nil
}

func (s *gatedStore) revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants = nil
	s.entered = nil
}

func TestCachedStore_InvalidateDuringLoad(t *testing.T) {
	next := &gatedStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		grants:  []string{"*"},
	}
	s := NewCachedStore(next, memoryCache(t), nil)
	ctx := context.Background()

	var g errgroup.Group

	var stale []string

	g.Go(func() error {
		var err error
		stale, err = s.Grants(ctx, "bob")

		return err
	})

	<-next.entered
	next.revoke()
	require.NoError(t, s.Invalidate(ctx, "bob"))
	close(next.release)

	require.NoError(t, g.Wait())
	assert.Equal(t, []string{"*"}, stale)

	grants, err := s.Grants(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestCachedStore_AcrossInstancesThroughRedis(t *testing.T) {
	client, _ := newRedis(t)
	ctx := context.Background()

	cfg := Config{Backend: BackendRedis, KeyPrefix: "g:", Channel: "grant-changes"}

	newInstance := func() (*RedisStore, *CachedStore) {
		notifier, err := NewNotifier(cfg, client)
		require.NoError(t, err)

		store, err := NewStore(cfg, client, notifier)
		require.NoError(t, err)

		//nolint:forcetypeassert // Redis backend.
		redisStore := store.(*RedisStore)

		cached := NewCachedStore(redisStore, memoryCache(t), notifier)
		cached.Start()
		t.Cleanup(func() { _ = cached.Close() })

		return redisStore, cached
	}

	writer, _ := newInstance()
	_, reader := newInstance()

	grants, err := reader.Grants(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, grants)

	require.NoError(t, writer.Grant(ctx, "bob", "tag:finance"))

	assert.Eventually(t, func() bool {
		grants, err := reader.Grants(ctx, "bob")
		return err == nil && len(grants) == 1 && grants[0] == "tag:finance"
	}, 2*time.Second, 10*time.Millisecond)
}
