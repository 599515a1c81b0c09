// Package ristretto is an in-process, cost-bounded provider backed by
// dgraph-io/ristretto. Writes are admitted asynchronously: a Set that
// returns ok=true may still be dropped by the admission policy.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/cachify/provider"
)

var ErrInvalidConfig = errors.New("ristretto: invalid config")

type Provider struct {
	c         *rc.Cache
	waitOnSet bool
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64 // ~10x the expected number of entries
	MaxCost     int64 // cost budget; cachify passes the per-Set cost through
	BufferItems int64 // 64 is a good default
	Metrics     bool
	// WaitOnSet blocks each Set until ristretto's write buffer is applied,
	// so a Get right after Set observes the value. Costs throughput.
	WaitOnSet bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, ErrInvalidConfig
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, waitOnSet: cfg.WaitOnSet}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // ristretto rejects negative ttls; 0 is no expiry
	}
	if cost <= 0 {
		cost = 1
	}
	ok := p.c.SetWithTTL(key, value, cost, ttl)
	if ok && p.waitOnSet {
		p.c.Wait()
	}
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
