package cachify

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/cachify/codec"
	"github.com/unkn0wn-root/cachify/internal/keys"
	"github.com/unkn0wn-root/cachify/internal/wire"
	"github.com/unkn0wn-root/cachify/provider"
)

const keyPrefix = "cfy"

// SetCostFunc computes the admission cost passed to the provider on Set.
type SetCostFunc func(storageKey string, raw []byte) int64

// ProviderStoreOptions configure a ProviderStore.
// Namespace, Provider and Codec are required.
type ProviderStoreOptions[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "user", "profile", "order"
	Provider  provider.Provider
	Codec     codec.Codec[V]

	MaxKeyLen      int         // longer keys are hashed; 0 => 512
	Hooks          Hooks       // SelfHeal / ProviderSetRejected; nil => NopHooks
	ComputeSetCost SetCostFunc // default 1
}

// ProviderStore adapts a byte provider (Ristretto, BigCache, Redis, ...) and a
// Codec into a Store. Entry metadata travels in a small binary frame in front
// of the encoded value. Entries that fail to decode are deleted and read as misses.
type ProviderStore[V any] struct {
	ns             string
	provider       provider.Provider
	codec          codec.Codec[V]
	maxKeyLen      int
	hooks          Hooks
	computeSetCost SetCostFunc
}

var _ Store[struct{}] = (*ProviderStore[struct{}])(nil)

func NewProviderStore[V any](opts ProviderStoreOptions[V]) (*ProviderStore[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("cachify: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("cachify: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("cachify: namespace is required")
	}

	s := &ProviderStore[V]{
		ns:        opts.Namespace,
		provider:  opts.Provider,
		codec:     opts.Codec,
		maxKeyLen: opts.MaxKeyLen,
	}
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(string, []byte) int64 { return 1 }
	}
	return s, nil
}

func (s *ProviderStore[V]) Get(ctx context.Context, key string) (Entry[V], bool, error) {
	k := s.storageKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return Entry[V]{}, false, err
	}
	meta, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		_ = s.provider.Del(ctx, k) // self-heal corrupt
		s.hooks.SelfHeal(k, "corrupt")
		return Entry[V]{}, false, nil
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		_ = s.provider.Del(ctx, k) // self-heal
		s.hooks.SelfHeal(k, "value_decode")
		return Entry[V]{}, false, nil
	}
	return Entry[V]{
		Value:       v,
		CreatedAt:   meta.CreatedAt,
		TTL:         meta.TTL,
		StaleWindow: meta.StaleWindow,
	}, true, nil
}

func (s *ProviderStore[V]) Set(ctx context.Context, key string, e Entry[V], ttlHint time.Duration) error {
	payload, err := s.codec.Encode(e.Value)
	if err != nil {
		return fmt.Errorf("cachify: encode value: %w", err)
	}
	raw, err := wire.EncodeEntry(wire.Meta{
		CreatedAt:   e.CreatedAt,
		TTL:         e.TTL,
		StaleWindow: e.StaleWindow,
	}, payload)
	if err != nil {
		return err
	}
	k := s.storageKey(key)
	ok, err := s.provider.Set(ctx, k, raw, s.computeSetCost(k, raw), ttlHint)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(k)
	}
	return nil
}

func (s *ProviderStore[V]) Delete(ctx context.Context, key string) error {
	return s.provider.Del(ctx, s.storageKey(key))
}

func (s *ProviderStore[V]) Close(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Close(ctx)
}

func (s *ProviderStore[V]) storageKey(userKey string) string {
	return keys.Storage(keyPrefix, s.ns, userKey, s.maxKeyLen)
}
