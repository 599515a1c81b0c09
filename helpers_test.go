package cachify

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/cachify/provider"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recHooks counts events.
type recHooks struct {
	NopHooks
	hits, misses, stale          atomic.Int64
	started, failed, dropped     atomic.Int64
	fallbacks, storeErrs, healed atomic.Int64
	rejected                     atomic.Int64

	mu      sync.Mutex
	lastErr error
}

func (h *recHooks) Hit(string)            { h.hits.Add(1) }
func (h *recHooks) Miss(string)           { h.misses.Add(1) }
func (h *recHooks) StaleServed(string)    { h.stale.Add(1) }
func (h *recHooks) RefreshStarted(string) { h.started.Add(1) }
func (h *recHooks) RefreshDropped(string) { h.dropped.Add(1) }
func (h *recHooks) SelfHeal(string, string) {
	h.healed.Add(1)
}
func (h *recHooks) ProviderSetRejected(string) { h.rejected.Add(1) }

func (h *recHooks) RefreshFailed(_ string, err error) {
	h.failed.Add(1)
	h.setErr(err)
}

func (h *recHooks) FallbackServed(_ string, err error) {
	h.fallbacks.Add(1)
	h.setErr(err)
}

func (h *recHooks) StoreError(_, _ string, err error) {
	h.storeErrs.Add(1)
	h.setErr(err)
}

func (h *recHooks) setErr(err error) {
	h.mu.Lock()
	h.lastErr = err
	h.mu.Unlock()
}

func (h *recHooks) err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

var errBackend = errors.New("backend down")

// faultyStore wraps a Store and fails the selected operations.
type faultyStore[V any] struct {
	Store[V]
	failGet, failSet, failDelete atomic.Bool
}

func (s *faultyStore[V]) Get(ctx context.Context, key string) (Entry[V], bool, error) {
	if s.failGet.Load() {
		return Entry[V]{}, false, errBackend
	}
	return s.Store.Get(ctx, key)
}

func (s *faultyStore[V]) Set(ctx context.Context, key string, e Entry[V], ttl time.Duration) error {
	if s.failSet.Load() {
		return errBackend
	}
	return s.Store.Set(ctx, key, e, ttl)
}

func (s *faultyStore[V]) Delete(ctx context.Context, key string) error {
	if s.failDelete.Load() {
		return errBackend
	}
	return s.Store.Delete(ctx, key)
}

type memEntry struct {
	v   []byte
	ttl time.Duration
}

// memProvider is a byte provider that records ttl hints and never expires.
type memProvider struct {
	mu     sync.Mutex
	m      map[string]memEntry
	reject bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false, nil
	}
	p.m[key] = memEntry{v: value, ttl: ttl}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) put(key string, raw []byte) {
	p.mu.Lock()
	p.m[key] = memEntry{v: raw}
	p.mu.Unlock()
}

func (p *memProvider) entry(key string) (memEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	return e, ok
}

// counter returns a producer yielding prefix-1, prefix-2, ... and its call count.
func counter(prefix string) (Producer[string], *atomic.Int64) {
	var n atomic.Int64
	return func(context.Context) (string, error) {
		i := n.Add(1)
		return prefix + "-" + strconv.FormatInt(i, 10), nil
	}, &n
}

type env struct {
	clock *fakeClock
	store *MapStore[string]
	hooks *recHooks
	cache *Cache[string]
}

func newEnv(t *testing.T, tweak func(*Options[string])) *env {
	t.Helper()
	clock := newClock()
	e := &env{clock: clock, store: NewMapStore[string](clock.Now), hooks: &recHooks{}}
	opts := Options[string]{
		Store:     e.store,
		Namespace: "test",
		Hooks:     e.hooks,
		Now:       clock.Now,
	}
	if tweak != nil {
		tweak(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	e.cache = c
	return e
}
