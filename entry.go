package cachify

import "time"

// Entry is the cached unit: a value plus the timing metadata it was computed with.
// Entries are never mutated; refreshing a key stores a new Entry in its place.
//
// TTL <= 0 means the entry never expires. StaleWindow <= 0 means it is never
// served stale once expired.
type Entry[V any] struct {
	Value       V
	CreatedAt   time.Time
	TTL         time.Duration
	StaleWindow time.Duration
}

func NewEntry[V any](v V, createdAt time.Time, ttl, staleWindow time.Duration) Entry[V] {
	if ttl < 0 {
		ttl = 0
	}
	if staleWindow < 0 {
		staleWindow = 0
	}
	return Entry[V]{Value: v, CreatedAt: createdAt, TTL: ttl, StaleWindow: staleWindow}
}

// ExpiresAt reports CreatedAt+TTL; ok is false when the entry has no TTL.
func (e Entry[V]) ExpiresAt() (t time.Time, ok bool) {
	if e.TTL <= 0 {
		return time.Time{}, false
	}
	return e.CreatedAt.Add(e.TTL), true
}

// StaleAt is when the entry becomes eligible for background refresh.
func (e Entry[V]) StaleAt() (time.Time, bool) { return e.ExpiresAt() }

// HardExpireAt is ExpiresAt+StaleWindow; past it the entry is only a fallback.
func (e Entry[V]) HardExpireAt() (time.Time, bool) {
	exp, ok := e.ExpiresAt()
	if !ok {
		return time.Time{}, false
	}
	if e.StaleWindow > 0 {
		return exp.Add(e.StaleWindow), true
	}
	return exp, true
}

func (e Entry[V]) Age(now time.Time) time.Duration {
	if d := now.Sub(e.CreatedAt); d > 0 {
		return d
	}
	return 0
}

// retention is the ttl hint handed to stores: how long from now the entry is
// worth keeping. That is until HardExpireAt plus grace, the time it stays
// available as a fallback. grace == 0 keeps it indefinitely (hint 0); grace < 0
// drops it at HardExpireAt.
func (e Entry[V]) retention(now time.Time, grace time.Duration) time.Duration {
	if grace == 0 {
		return 0
	}
	hard, ok := e.HardExpireAt()
	if !ok {
		return 0
	}
	if grace > 0 {
		hard = hard.Add(grace)
	}
	if d := hard.Sub(now); d > 0 {
		return d
	}
	return time.Millisecond
}
