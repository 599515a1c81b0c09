// Package flight implements per-key single-flight with reference-counted slots.
//
// A slot exists in the table only while at least one caller (the leader or a
// joiner) references it, so memory tracks contended keys, not the key space.
package flight

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// ErrUnbalanced reports a release that does not match the slot table
// (double finish, unknown key, refcount underflow). It indicates a bug.
var ErrUnbalanced = errors.New("flight: unbalanced release")

// ErrGoexit is delivered to joiners when the leader called runtime.Goexit.
var ErrGoexit = errors.New("flight: leader exited without result")

// PanicError is delivered to joiners when the leader's function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("flight: leader panicked: %v", p.Value)
}

// Call is one in-flight computation for a key.
type Call[V any] struct {
	done chan struct{}
	val  V
	err  error

	// guarded by Group.mu
	refs     int
	finished bool
}

// Done is closed once the leader has published its outcome.
func (c *Call[V]) Done() <-chan struct{} { return c.done }

// Group is the per-key slot table. The zero value is ready to use.
type Group[V any] struct {
	mu sync.Mutex
	m  map[string]*Call[V]
}

// Acquire joins the in-flight call for key or starts a new one. leader is true
// for exactly one concurrent caller; that caller must run Do.
// Joiners must call Wait.
func (g *Group[V]) Acquire(key string) (c *Call[V], leader bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = make(map[string]*Call[V])
	}
	if c, ok := g.m[key]; ok && !c.finished {
		c.refs++
		return c, false
	}
	// A finished call may still be referenced by joiners draining it;
	// a new computation replaces the slot and the old one is left to them.
	c = &Call[V]{done: make(chan struct{}), refs: 1}
	g.m[key] = c
	return c, true
}

// TryAcquire makes the caller leader only if nothing is in flight for key.
// When ok is false no reference is taken.
func (g *Group[V]) TryAcquire(key string) (c *Call[V], ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = make(map[string]*Call[V])
	}
	if cur, exists := g.m[key]; exists && !cur.finished {
		return nil, false
	}
	c = &Call[V]{done: make(chan struct{}), refs: 1}
	g.m[key] = c
	return c, true
}

// Do runs fn as the leader of c and publishes the outcome to joiners on every
// exit path. A panic in fn is published as *PanicError and re-raised.
func (g *Group[V]) Do(key string, c *Call[V], fn func() (V, error)) (v V, err error) {
	normal := false
	defer func() {
		if normal {
			return
		}
		var zero V
		r := recover()
		if r == nil {
			_ = g.finish(key, c, zero, ErrGoexit)
			return
		}
		_ = g.finish(key, c, zero, &PanicError{Value: r, Stack: debug.Stack()})
		panic(r)
	}()

	v, err = fn()
	normal = true
	if ferr := g.finish(key, c, v, err); ferr != nil {
		return v, ferr
	}
	return v, err
}

// Release publishes an outcome for a leader that never ran Do (for example a
// background refresh that could not be scheduled).
func (g *Group[V]) Release(key string, c *Call[V], v V, err error) error {
	return g.finish(key, c, v, err)
}

// Wait blocks until the leader publishes or ctx ends. Either way the
// joiner's reference is dropped.
func (g *Group[V]) Wait(ctx context.Context, key string, c *Call[V]) (V, error) {
	select {
	case <-c.done:
		g.leave(key, c)
		return c.val, c.err
	case <-ctx.Done():
		g.leave(key, c)
		var zero V
		return zero, ctx.Err()
	}
}

// Len reports the number of slots currently held.
func (g *Group[V]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}

func (g *Group[V]) finish(key string, c *Call[V], v V, err error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c.finished {
		return ErrUnbalanced
	}
	c.val, c.err = v, err
	c.finished = true
	close(c.done)
	return g.dropLocked(key, c)
}

func (g *Group[V]) leave(key string, c *Call[V]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_ = g.dropLocked(key, c)
}

func (g *Group[V]) dropLocked(key string, c *Call[V]) error {
	if c.refs <= 0 {
		return ErrUnbalanced
	}
	c.refs--
	if c.refs > 0 {
		return nil
	}
	if cur, ok := g.m[key]; ok && cur == c {
		delete(g.m, key)
	}
	return nil
}
