package cachify

import "time"

// State is the staleness classification of an entry at a point in time.
type State uint8

const (
	// Expired entries (and missing ones) force a computation. A present but
	// expired entry is still kept as a fallback if the computation fails.
	Expired State = iota
	// Stale entries are served immediately while a background refresh runs.
	Stale
	// Fresh entries are served as is.
	Fresh
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "expired"
	}
}

// Classify is pure: it depends only on e's metadata and now.
func Classify[V any](e Entry[V], now time.Time) State {
	exp, ok := e.ExpiresAt()
	if !ok || now.Before(exp) {
		return Fresh
	}
	if e.StaleWindow > 0 && now.Before(exp.Add(e.StaleWindow)) {
		return Stale
	}
	return Expired
}
