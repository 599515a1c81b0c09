// Package cachify implements a get-or-set computation cache: a value is
// computed once per key, reused while fresh, refreshed in the background while
// stale, and recomputed (exactly once across concurrent callers) when expired.
// If a recomputation fails, the previous value is served instead of the error.
//
// Components:
//   - Store[V]: get/set/delete capability. ProviderStore adapts any byte
//     provider (Ristretto, BigCache, Redis) plus a Codec[V]; MapStore is a
//     plain in-process map.
//   - Classify: pure Fresh/Stale/Expired policy over Entry metadata.
//   - Per-key single-flight: one computation per key at a time, shared by the
//     foreground (expired) and background (stale) paths.
//   - Hooks / Logger: observability call sites; adapters live in sloghooks,
//     hooks/async, hooks/otel and log/{zap,logrus,slog}.
//
// Usage:
//
//	store, _ := cachify.NewProviderStore(cachify.ProviderStoreOptions[User]{
//	    Namespace: "user",
//	    Provider:  ristrettoProvider,
//	    Codec:     codec.JSON[User]{},
//	})
//	c, _ := cachify.New(cachify.Options[User]{Store: store})
//	u, err := c.GetOrSet(ctx, "u:1", loadUser, cachify.CallOptions[User]{
//	    TTL:                  time.Minute,
//	    StaleWhileRevalidate: 5 * time.Minute,
//	})
package cachify
