package cachify

import (
	"errors"
	"fmt"
)

var (
	ErrNilProducer = errors.New("cachify: producer is nil")
	ErrClosed      = errors.New("cachify: cache is closed")
	ErrInvalid     = errors.New("cachify: value rejected")
)

// BackendError is a storage failure on get, set or delete.
// Only Invalidate and SoftPurge return it; GetOrSet reports it through Hooks.
type BackendError struct {
	Op  string // "get" | "set" | "delete"
	Key string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("cachify: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ComputeError wraps a producer failure (including a recovered producer panic).
type ComputeError struct {
	Key string
	Err error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("cachify: compute %q: %v", e.Key, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// ValidationError is returned when CheckValue rejects a freshly produced value.
type ValidationError struct {
	Key string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cachify: validate %q: %v", e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// LockError means the per-key single-flight table was released out of balance.
// It is a contract violation, not a runtime condition callers should retry.
type LockError struct {
	Key string
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("cachify: lock %q: %v", e.Key, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }
