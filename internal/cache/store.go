package cache

import (
	"context"
	"sync"
	"time"

	"order-portal/internal/util"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads the value for one key.
type Fetcher func(ctx context.Context) (interface{}, error)

// PolicyFunc derives an entry's freshness from its value.
type PolicyFunc func(value interface{}) Policy

// StoreConfig configures a Store
type StoreConfig struct {
	Retry RetryPolicy
	// Offline reports connectivity failures. A cached value is served
	// instead of such an error.
	Offline func(error) bool
	Clock   clock.Clock
}

type entry struct {
	value     interface{}
	fetchedAt time.Time
	policy    Policy
	invalid   bool
}

// Store is a keyed cache shared by every session of the process. Concurrent
// misses on one key share a single fetch.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	// gens counts invalidations per key so a fetch that raced one is not
	// mistaken for fresh.
	gens map[Key]uint64

	group   singleflight.Group
	retry   RetryPolicy
	offline func(error) bool
	clock   clock.Clock
	logger  *zap.Logger
}

// NewStore creates a new Store
func NewStore(cfg StoreConfig) *Store {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		entries: make(map[Key]*entry),
		gens:    make(map[Key]uint64),
		retry:   cfg.Retry,
		offline: cfg.Offline,
		clock:   clk,
		logger:  util.GetLogger(),
	}
}

// Get returns the cached value for key while it is fresh and fetches it
// otherwise.
func (s *Store) Get(ctx context.Context, key Key, fetch Fetcher, policy PolicyFunc) (interface{}, error) {
	if value, ok := s.fresh(key); ok {
		util.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return value, nil
	}
	util.CacheLookupsTotal.WithLabelValues("miss").Inc()

	// The flight is shared, so it must outlive the caller that started it.
	// Each caller still stops waiting when its own ctx ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(string(key), func() (interface{}, error) {
		// A flight that finished while this caller waited may already have
		// refreshed the entry.
		if value, ok := s.fresh(key); ok {
			return value, nil
		}
		return s.load(flightCtx, key, fetch, policy)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (s *Store) load(ctx context.Context, key Key, fetch Fetcher, policy PolicyFunc) (interface{}, error) {
	ctx, span := util.StartSpan(ctx, "Store.load")
	defer span.End()

	s.mu.Lock()
	gen := s.gens[key]
	s.mu.Unlock()

	value, err := s.retry.do(ctx, s.clock, fetch)
	if err != nil {
		util.CacheFetchesTotal.WithLabelValues("error").Inc()
		if cached, ok := s.Peek(key); ok && s.offline != nil && s.offline(err) {
			util.CacheLookupsTotal.WithLabelValues("stale_served").Inc()
			s.logger.Warn("Serving cached value while offline",
				zap.String("key", string(key)),
				zap.Error(err))
			return cached, nil
		}
		return nil, err
	}
	util.CacheFetchesTotal.WithLabelValues("ok").Inc()

	s.mu.Lock()
	s.entries[key] = &entry{
		value:     value,
		fetchedAt: s.clock.Now(),
		policy:    policy(value),
		invalid:   s.gens[key] != gen,
	}
	s.mu.Unlock()

	return value, nil
}

func (s *Store) fresh(key Key) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.invalid {
		return nil, false
	}
	if s.clock.Now().Sub(e.fetchedAt) >= e.policy.StaleAfter {
		return nil, false
	}
	return e.value, true
}

// Invalidate forces the next Get of key to fetch. Repeated calls before that
// Get collapse into one fetch.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gens[key]++
	if e, ok := s.entries[key]; ok && !e.invalid {
		e.invalid = true
		util.CacheInvalidationsTotal.Inc()
	}
}

// InvalidateAll invalidates every key in keys.
func (s *Store) InvalidateAll(keys ...Key) {
	for _, key := range keys {
		s.Invalidate(key)
	}
}

// Peek returns the cached value for key regardless of freshness.
func (s *Store) Peek(key Key) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores value for key as freshly fetched.
func (s *Store) Set(key Key, value interface{}, policy Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{value: value, fetchedAt: s.clock.Now(), policy: policy}
}

// Delete drops key and its invalidation history.
func (s *Store) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	delete(s.gens, key)
}

// Get is the typed form of Store.Get.
func Get[T any](ctx context.Context, s *Store, key Key, fetch func(context.Context) (T, error), policy func(T) Policy) (T, error) {
	value, err := s.Get(ctx, key,
		func(ctx context.Context) (interface{}, error) {
			return fetch(ctx)
		},
		func(value interface{}) Policy {
			return policy(value.(T))
		})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}
