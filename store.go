package cachify

import (
	"context"
	"time"
)

// Store is the storage capability the cache runs on.
//
// Contract:
//   - Safe for concurrent use.
//   - Get returns (entry, true, nil) on hit and (zero, false, nil) on miss.
//     A store may lose entries at any time (eviction, expiry, partition);
//     the cache treats every miss the same way.
//   - ttlHint <= 0 means "no hint". Stores with native expiry should keep the
//     entry at least that long; others may ignore it.
//     The hint covers the fallback period too: an entry past its hard expiry
//     is never served as is, but it is what GetOrSet returns when the next
//     computation fails. Options.FallbackRetention trades store memory for
//     that guarantee. By default no hint is sent and entries stay until the
//     store evicts them; a positive grace bounds them to hard expiry + grace;
//     NoFallbackRetention drops them at hard expiry, so a failed recompute
//     after that point has nothing to fall back to.
//   - Delete is idempotent.
type Store[V any] interface {
	Get(ctx context.Context, key string) (Entry[V], bool, error)
	Set(ctx context.Context, key string, e Entry[V], ttlHint time.Duration) error
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}
