package cachify

import (
	"context"
	"sync"
	"time"
)

type mapItem[V any] struct {
	e   Entry[V]
	exp time.Time // zero => no ttl hint
}

// MapStore is an unbounded in-process Store without serialization. It honors
// ttlHint by dropping entries on read once the hint has passed. Useful for
// tests and single-process tools; use ProviderStore with Ristretto or BigCache
// when memory must be bounded.
type MapStore[V any] struct {
	mu  sync.RWMutex
	m   map[string]mapItem[V]
	now func() time.Time
}

var _ Store[struct{}] = (*MapStore[struct{}])(nil)

// NewMapStore returns an empty store. now may be nil (time.Now).
func NewMapStore[V any](now func() time.Time) *MapStore[V] {
	if now == nil {
		now = time.Now
	}
	return &MapStore[V]{m: make(map[string]mapItem[V]), now: now}
}

func (s *MapStore[V]) Get(_ context.Context, key string) (Entry[V], bool, error) {
	s.mu.RLock()
	it, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return Entry[V]{}, false, nil
	}
	if !it.exp.IsZero() && !s.now().Before(it.exp) {
		s.mu.Lock()
		if cur, ok := s.m[key]; ok && cur.exp.Equal(it.exp) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return Entry[V]{}, false, nil
	}
	return it.e, true, nil
}

func (s *MapStore[V]) Set(_ context.Context, key string, e Entry[V], ttlHint time.Duration) error {
	var exp time.Time
	if ttlHint > 0 {
		exp = s.now().Add(ttlHint)
	}
	s.mu.Lock()
	s.m[key] = mapItem[V]{e: e, exp: exp}
	s.mu.Unlock()
	return nil
}

func (s *MapStore[V]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, including ones past their hint
// that have not been read since.
func (s *MapStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *MapStore[V]) Close(context.Context) error { return nil }
