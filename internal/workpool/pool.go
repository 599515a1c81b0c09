// Package workpool runs detached background tasks on a fixed set of workers fed
// by a bounded queue. Submit never blocks: a full queue drops the task.
package workpool

import (
	"context"
	"sync"
)

type Pool struct {
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	onPanic func(any)
}

// New starts workers goroutines. onPanic (optional) receives values recovered
// from panicking tasks; the worker keeps running.
func New(workers, qlen int, onPanic func(any)) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	p := &Pool{q: make(chan func(), qlen), onPanic: onPanic}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for f := range p.q {
				p.run(f)
			}
		}()
	}
	return p
}

func (p *Pool) run(f func()) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	f()
}

// Submit enqueues f. It reports false when the queue is full or the pool is closed.
func (p *Pool) Submit(f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.q <- f:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks and waits for queued and running ones, or for ctx.
func (p *Pool) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.q)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
