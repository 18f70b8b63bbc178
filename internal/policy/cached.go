package policy

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/looplj/visgate/internal/log"
	"github.com/looplj/visgate/internal/pkg/xcache"
	"github.com/looplj/visgate/internal/pkg/xcontext"
)

const (
	cacheKeyPrefix     = "grants:"
	defaultLoadTimeout = 5 * time.Second
)

// CachedStore caches grant lists in front of another Store. Concurrent misses for the
// same subject share one load. Changes heard on the watcher evict the subject.
//
// Only grants are cached, never visibility decisions.
type CachedStore struct {
	next    Store
	cache   xcache.Cache[[]string]
	watcher Watcher
	group   singleflight.Group

	genMu sync.Mutex
	gens  map[string]uint64

	mu   sync.Mutex
	stop func()
	done chan struct{}
}

// NewCachedStore wraps next. watcher may be nil.
func NewCachedStore(next Store, cache xcache.Cache[[]string], watcher Watcher) *CachedStore {
	return &CachedStore{
		next:    next,
		cache:   cache,
		watcher: watcher,
		gens:    make(map[string]uint64),
	}
}

func (s *CachedStore) generation(subject string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	return s.gens[subject]
}

func cacheKey(subject string) string {
	return cacheKeyPrefix + subject
}

func (s *CachedStore) Grants(ctx context.Context, subject string) ([]string, error) {
	key := cacheKey(subject)

	grants, err := s.cache.Get(ctx, key)
	if err == nil {
		return slices.Clone(grants), nil
	}

	if !xcache.IsNotFound(err) {
		log.Warn(ctx, "grant cache read failed", log.String("subject", subject), log.Cause(err))
	}

	v, err, _ := s.group.Do(subject, func() (any, error) {
		// Shared by every waiter, so one caller going away must not fail the others.
		loadCtx, cancel := xcontext.DetachWithTimeout(ctx, defaultLoadTimeout)
		defer cancel()

		gen := s.generation(subject)

		grants, err := s.next.Grants(loadCtx, subject)
		if err != nil {
			return nil, err
		}

		if grants == nil {
			grants = []string{}
		}

		// An invalidation during the load means grants may predate the change.
		if s.generation(subject) != gen {
			return grants, nil
		}

		if err := s.cache.Set(loadCtx, key, grants); err != nil {
			log.Warn(ctx, "grant cache write failed", log.String("subject", subject), log.Cause(err))
			return grants, nil
		}

		// Invalidate may have deleted the key between the check and the write.
		if s.generation(subject) != gen {
			if err := s.cache.Delete(loadCtx, key); err != nil {
				log.Warn(ctx, "failed to evict grants", log.String("subject", subject), log.Cause(err))
			}
		}

		return grants, nil
	})
	if err != nil {
		return nil, err
	}

	//nolint:forcetypeassert // Always []string.
	return slices.Clone(v.([]string)), nil
}

// Invalidate evicts the cached grants of subject.
func (s *CachedStore) Invalidate(ctx context.Context, subject string) error {
	s.genMu.Lock()
	s.gens[subject]++
	s.genMu.Unlock()

	s.group.Forget(subject)
	return s.cache.Delete(ctx, cacheKey(subject))
}

// Start follows the watcher until Close. It is a no-op without a watcher or when
// already started.
func (s *CachedStore) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil || s.stop != nil {
		return
	}

	changes, stop := s.watcher.Watch()
	done := make(chan struct{})

	s.stop = stop
	s.done = done

	go func() {
		defer close(done)

		ctx := context.Background()

		for c := range changes {
			if err := s.Invalidate(ctx, c.Subject); err != nil {
				log.Warn(ctx, "failed to evict grants", log.String("subject", c.Subject), log.Cause(err))
				continue
			}

			log.Debug(ctx, "evicted grants", log.String("subject", c.Subject))
		}
	}()
}

// Close stops following the watcher.
func (s *CachedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return nil
	}

	s.stop()
	<-s.done

	s.stop = nil
	s.done = nil

	return nil
}
