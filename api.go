package cachify

import (
	"context"
	"time"
)

// Producer computes the value for a key. It is called at most once per
// compute cycle per key, no matter how many callers are waiting.
type Producer[V any] func(ctx context.Context) (V, error)

// CallOptions configure a single GetOrSet call. All fields are optional.
type CallOptions[V any] struct {
	// TTL of the entry written by this call. 0 => cached until invalidated or
	// evicted by the store.
	TTL time.Duration
	// StaleWhileRevalidate is how long after TTL the entry is still served
	// while a background refresh runs. Ignored when TTL is 0.
	StaleWhileRevalidate time.Duration
	// ForceFresh skips the read and always computes (the result is stored).
	ForceFresh bool
	// CheckValue runs on every freshly produced value before it is stored.
	// A rejection is handled exactly like a producer error.
	CheckValue func(V) error
	// CheckCached also runs CheckValue on entries read from the store. A
	// cached value it rejects is never served, not even as a fallback; the
	// call recomputes as if the key were missing.
	CheckCached bool
}

// NoFallbackRetention tells stores to drop entries at hard expiry.
const NoFallbackRetention time.Duration = -1

// Options tune the cache. Only Store is required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Store Store[V]

	Namespace      string           // used in logs only; "" => "default"
	Logger         Logger           // if nil, NopLogger is used
	Hooks          Hooks            // if nil, NopHooks is used
	Now            func() time.Time // clock; nil => time.Now
	RefreshWorkers int              // background refresh workers; 0 => 4
	RefreshQueue   int              // pending background refreshes; 0 => 256
	RefreshTimeout time.Duration    // per background refresh; 0 => none
	Disabled       bool             // default false (enabled); disabled => always produce, never store

	// FallbackRetention is how long past hard expiry stores are asked to keep
	// an entry so it can still be served after a failed recomputation.
	// 0 => no expiry hint (kept until evicted or invalidated);
	// NoFallbackRetention => hint ends at hard expiry. See Store.
	FallbackRetention time.Duration
}

func New[V any](opts Options[V]) (*Cache[V], error) {
	return newCache[V](opts)
}

// coalesce returns def when v is the zero value of T.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
