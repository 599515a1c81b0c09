package cachify

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths; wrap slow sinks with hooks/async.
type Hooks interface {
	// A fresh entry was served.
	Hit(key string)
	// No usable entry; the caller will compute or join a computation.
	Miss(key string)
	// A stale entry was served while a refresh may run in background.
	StaleServed(key string)

	// A background refresh began running.
	RefreshStarted(key string)
	// A background refresh failed; the stale entry stays in place.
	RefreshFailed(key string, err error)
	// A background refresh could not be queued (pool full or closed).
	RefreshDropped(key string)

	// Compute or validation failed and a previous entry was returned instead.
	FallbackServed(key string, err error)

	// Store failure. op ∈ {"get", "set", "delete"}. Never fails GetOrSet.
	StoreError(op, key string, err error)

	// ProviderStore deleted an entry on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)
	// Provider returned ok=false on Set (backpressure/admission).
	ProviderSetRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                       {}
func (NopHooks) Miss(string)                      {}
func (NopHooks) StaleServed(string)               {}
func (NopHooks) RefreshStarted(string)            {}
func (NopHooks) RefreshFailed(string, error)      {}
func (NopHooks) RefreshDropped(string)            {}
func (NopHooks) FallbackServed(string, error)     {}
func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) ProviderSetRejected(string)       {}
