package cachify

import "context"

// refresh is the shared produce -> validate -> persist-or-fallback step used by
// both the foreground leader and background refreshes. background only changes
// which hook reports a failure: the stale value was already served, so it is
// RefreshFailed rather than FallbackServed. Joiners of either path get the
// fallback value.
func (c *Cache[V]) refresh(ctx context.Context, key string, produce Producer[V], opts CallOptions[V], prev *Entry[V], background bool) (V, error) {
	v, err := c.compute(ctx, key, produce, opts)
	if err == nil {
		c.persist(ctx, key, v, opts)
		return v, nil
	}

	if background {
		c.hooks.RefreshFailed(key, err)
		c.log.Warn("background refresh failed; keeping stale entry", c.keyFields(key, err))
	}
	if prev != nil {
		if !background {
			c.hooks.FallbackServed(key, err)
			c.log.Warn("serving previous value after failed refresh", c.keyFields(key, err))
		}
		return prev.Value, nil
	}
	var zero V
	return zero, err
}

func (c *Cache[V]) compute(ctx context.Context, key string, produce Producer[V], opts CallOptions[V]) (V, error) {
	var zero V
	v, err := produce(ctx)
	if err != nil {
		return zero, &ComputeError{Key: key, Err: err}
	}
	if opts.CheckValue != nil {
		if err := opts.CheckValue(v); err != nil {
			return zero, &ValidationError{Key: key, Err: err}
		}
	}
	return v, nil
}

// persist is best-effort: a failed write is reported, the value is still returned.
func (c *Cache[V]) persist(ctx context.Context, key string, v V, opts CallOptions[V]) {
	now := c.now()
	stale := opts.StaleWhileRevalidate
	if opts.TTL <= 0 {
		stale = 0
	}
	e := NewEntry(v, now, opts.TTL, stale)
	if err := c.store.Set(ctx, key, e, e.retention(now, c.fallbackRetention)); err != nil {
		c.hooks.StoreError("set", key, err)
		c.log.Warn("store write failed", c.keyFields(key, err))
	}
}
