// Package asynchook moves Hooks calls off the cache's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	    MissEvery:     100,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := cachify.New(cachify.Options[User]{
//	    Store: store,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
//
// Events are dropped, never blocked on, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/cachify"
)

type Hooks struct {
	inner   cachify.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed vs. sends on q
	closed  bool
	dropped atomic.Uint64
}

var _ cachify.Hooks = (*Hooks)(nil)

func New(inner cachify.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = cachify.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(k string)            { h.try(func() { h.inner.Hit(k) }) }
func (h *Hooks) Miss(k string)           { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) StaleServed(k string)    { h.try(func() { h.inner.StaleServed(k) }) }
func (h *Hooks) RefreshStarted(k string) { h.try(func() { h.inner.RefreshStarted(k) }) }
func (h *Hooks) RefreshDropped(k string) { h.try(func() { h.inner.RefreshDropped(k) }) }
func (h *Hooks) RefreshFailed(k string, err error) {
	h.try(func() { h.inner.RefreshFailed(k, err) })
}
func (h *Hooks) FallbackServed(k string, err error) {
	h.try(func() { h.inner.FallbackServed(k, err) })
}
func (h *Hooks) StoreError(op, k string, err error) {
	h.try(func() { h.inner.StoreError(op, k, err) })
}
func (h *Hooks) SelfHeal(k, r string)         { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
