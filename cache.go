package cachify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/cachify/internal/flight"
	"github.com/unkn0wn-root/cachify/internal/workpool"
)

const (
	defaultRefreshWorkers = 4
	defaultRefreshQueue   = 256
)

// Cache is the get-or-set engine. It is safe for concurrent use.
type Cache[V any] struct {
	ns    string
	store Store[V]
	log   Logger
	hooks Hooks
	now   func() time.Time

	enabled           bool
	refreshTimeout    time.Duration
	fallbackRetention time.Duration

	flights flight.Group[V]
	pool    *workpool.Pool

	mu        sync.RWMutex // guards closed vs. active.Add
	closed    bool
	active    sync.WaitGroup // foreground calls
	closeOnce sync.Once
	closeErr  error
}

func newCache[V any](opts Options[V]) (*Cache[V], error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("cachify: store is required")
	}
	if opts.RefreshTimeout < 0 {
		return nil, fmt.Errorf("cachify: negative refresh timeout %v", opts.RefreshTimeout)
	}

	c := &Cache[V]{
		store:             opts.Store,
		enabled:           !opts.Disabled,
		refreshTimeout:    opts.RefreshTimeout,
		fallbackRetention: opts.FallbackRetention,
	}

	// defaults
	c.ns = coalesce(opts.Namespace, "default")
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.now = opts.Now
	if c.now == nil {
		c.now = time.Now
	}

	workers := coalesce(opts.RefreshWorkers, defaultRefreshWorkers)
	queue := coalesce(opts.RefreshQueue, defaultRefreshQueue)
	c.pool = workpool.New(workers, queue, func(r any) {
		c.log.Error("background refresh panicked", Fields{"ns": c.ns, "panic": r})
	})
	return c, nil
}

func (c *Cache[V]) Enabled() bool { return c.enabled }

// GetOrSet returns the cached value for key, computing it with produce when
// there is no usable entry.
//
//   - Fresh entry: returned, produce is not called.
//   - Stale entry: returned immediately; one background refresh is scheduled
//     unless one is already in flight for key.
//   - Expired or missing: exactly one concurrent caller runs produce, the rest
//     wait for its outcome. On failure a previously read entry (even expired)
//     is returned instead of the error.
//
// Store read failures count as misses and store write failures never fail the
// call; both are reported through Hooks.
//
// Joiners share the leader's outcome. If the leader failed only because its own
// ctx was cancelled or timed out, a joiner whose ctx is still live retries once,
// so a context error returned here belongs to the caller's ctx or to a retry.
func (c *Cache[V]) GetOrSet(ctx context.Context, key string, produce Producer[V], opts CallOptions[V]) (V, error) {
	var zero V
	if produce == nil {
		return zero, ErrNilProducer
	}
	if !c.enter() {
		return zero, ErrClosed
	}
	defer c.active.Done()
	if !c.enabled {
		return c.compute(ctx, key, produce, opts)
	}

	var prev *Entry[V]
	if !opts.ForceFresh {
		if e, ok := c.read(ctx, key); ok && c.admit(key, e, opts) {
			switch Classify(e, c.now()) {
			case Fresh:
				c.hooks.Hit(key)
				return e.Value, nil
			case Stale:
				c.hooks.StaleServed(key)
				c.revalidate(ctx, key, produce, opts, e)
				return e.Value, nil
			}
			prev = &e
		}
		c.hooks.Miss(key)
	}
	return c.load(ctx, key, produce, opts, prev)
}

// Peek reads and classifies the entry for key without computing anything.
func (c *Cache[V]) Peek(ctx context.Context, key string) (Entry[V], State, bool) {
	if !c.enter() {
		return Entry[V]{}, Expired, false
	}
	defer c.active.Done()
	e, ok := c.read(ctx, key)
	if !ok {
		return Entry[V]{}, Expired, false
	}
	return e, Classify(e, c.now()), true
}

// Invalidate deletes the entry for key. A computation already in flight for
// key is not interrupted and may store its result afterwards.
func (c *Cache[V]) Invalidate(ctx context.Context, key string) error {
	if !c.enter() {
		return ErrClosed
	}
	defer c.active.Done()
	if !c.enabled {
		return nil
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.hooks.StoreError("delete", key, err)
		return &BackendError{Op: "delete", Key: key, Err: err}
	}
	c.log.Debug("invalidated key", c.keyFields(key, nil))
	return nil
}

// SoftPurge keeps the value for key but marks it expired as of now, so the
// next GetOrSet serves it stale (if it has a stale window) and refreshes.
// staleWindow > 0 replaces the entry's own window. Missing keys are a no-op.
func (c *Cache[V]) SoftPurge(ctx context.Context, key string, staleWindow time.Duration) error {
	if !c.enter() {
		return ErrClosed
	}
	defer c.active.Done()
	if !c.enabled {
		return nil
	}
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.hooks.StoreError("get", key, err)
		return &BackendError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return nil
	}

	now := c.now()
	window := e.StaleWindow
	if staleWindow > 0 {
		window = staleWindow
	}
	if window <= 0 && Classify(e, now) != Fresh {
		// already unusable except as a fallback; nothing to mark
		return nil
	}

	ttl := e.TTL
	if ttl <= 0 {
		ttl = time.Nanosecond
	}
	purged := NewEntry(e.Value, now.Add(-ttl), ttl, window)
	hint := purged.retention(now, c.fallbackRetention)
	if window <= 0 {
		hint = e.retention(now, c.fallbackRetention)
	}
	if err := c.store.Set(ctx, key, purged, hint); err != nil {
		c.hooks.StoreError("set", key, err)
		return &BackendError{Op: "set", Key: key, Err: err}
	}
	c.log.Debug("soft purged key", Fields{"ns": c.ns, "key": key, "staleWindow": window})
	return nil
}

// Close rejects new calls with ErrClosed, waits for foreground calls already
// running and then for queued and running background refreshes, and finally
// closes the store. Both waits are bounded by ctx; if ctx ends first the store
// is closed anyway and calls still running see their store errors only as
// StoreError hooks.
func (c *Cache[V]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		aerr := waitGroup(ctx, &c.active)
		perr := c.pool.Close(ctx)
		serr := c.store.Close(ctx)
		c.closeErr = errors.Join(aerr, perr, serr)
	})
	return c.closeErr
}

// enter registers a foreground call. It is false once Close has begun.
func (c *Cache[V]) enter() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	c.active.Add(1)
	return true
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// admit reports whether a cached entry may be used at all. With CheckCached a
// rejected entry is neither served nor kept as a fallback.
func (c *Cache[V]) admit(key string, e Entry[V], opts CallOptions[V]) bool {
	if !opts.CheckCached || opts.CheckValue == nil {
		return true
	}
	if err := opts.CheckValue(e.Value); err != nil {
		c.log.Debug("cached value rejected", c.keyFields(key, err))
		return false
	}
	return true
}

func (c *Cache[V]) read(ctx context.Context, key string) (Entry[V], bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.hooks.StoreError("get", key, err)
		c.log.Warn("store read failed; treating as miss", c.keyFields(key, err))
		return Entry[V]{}, false
	}
	return e, ok
}

// load is the foreground path: lead the computation for key or join it.
func (c *Cache[V]) load(ctx context.Context, key string, produce Producer[V], opts CallOptions[V], prev *Entry[V]) (V, error) {
	for retried := false; ; retried = true {
		call, leader := c.flights.Acquire(key)
		if leader {
			return c.lead(ctx, key, call, produce, opts, prev)
		}
		v, err := c.flights.Wait(ctx, key, call)
		if !retried && ctx.Err() == nil && isCtxErr(err) {
			// the leader's ctx ended, not ours
			c.log.Debug("leader cancelled; retrying", c.keyFields(key, err))
			continue
		}
		return v, c.joinErr(key, err)
	}
}

func (c *Cache[V]) lead(ctx context.Context, key string, call *flight.Call[V], produce Producer[V], opts CallOptions[V], prev *Entry[V]) (V, error) {
	v, err := c.flights.Do(key, call, func() (V, error) {
		if !opts.ForceFresh {
			// a previous leader may have stored a value between our read and Acquire
			if e, ok := c.read(ctx, key); ok && c.admit(key, e, opts) {
				if Classify(e, c.now()) == Fresh {
					return e.Value, nil
				}
				prev = &e
			}
		}
		return c.refresh(ctx, key, produce, opts, prev, false)
	})
	if errors.Is(err, flight.ErrUnbalanced) {
		c.log.Error("single-flight release out of balance", c.keyFields(key, nil))
		return v, &LockError{Key: key, Err: err}
	}
	return v, err
}

// revalidate schedules a detached background refresh for a stale entry unless
// one is already in flight for key.
func (c *Cache[V]) revalidate(ctx context.Context, key string, produce Producer[V], opts CallOptions[V], stale Entry[V]) {
	call, ok := c.flights.TryAcquire(key)
	if !ok {
		c.log.Debug("refresh already in flight", c.keyFields(key, nil))
		return
	}

	bctx := context.WithoutCancel(ctx)
	task := func() {
		rctx, cancel := bctx, context.CancelFunc(func() {})
		if c.refreshTimeout > 0 {
			rctx, cancel = context.WithTimeout(bctx, c.refreshTimeout)
		}
		defer cancel()

		c.hooks.RefreshStarted(key)
		_, err := c.flights.Do(key, call, func() (V, error) {
			return c.refresh(rctx, key, produce, opts, &stale, true)
		})
		if errors.Is(err, flight.ErrUnbalanced) {
			c.log.Error("single-flight release out of balance", c.keyFields(key, nil))
		}
	}

	if c.pool.Submit(task) {
		c.log.Debug("background refresh scheduled", c.keyFields(key, nil))
		return
	}
	// not scheduled: hand the stale value to anyone who joined meanwhile
	c.hooks.RefreshDropped(key)
	c.log.Warn("background refresh dropped", c.keyFields(key, nil))
	if err := c.flights.Release(key, call, stale.Value, nil); err != nil {
		c.log.Error("single-flight release out of balance", c.keyFields(key, nil))
	}
}

// joinErr wraps leader failures that carry no error of their own.
func (c *Cache[V]) joinErr(key string, err error) error {
	var pe *flight.PanicError
	if errors.As(err, &pe) || errors.Is(err, flight.ErrGoexit) {
		return &ComputeError{Key: key, Err: err}
	}
	return err
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
