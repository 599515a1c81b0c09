// Package sloghooks reports cachify events through log/slog.
// Keys are redacted by default; high-volume events can be sampled.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cachify"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery      uint64
	MissEvery     uint64
	StaleEvery    uint64
	SelfHealEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr      atomic.Uint64
	missCtr     atomic.Uint64
	staleCtr    atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ cachify.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("cachify.hit", "key", h.redact(key))
}

func (h *Hooks) Miss(key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("cachify.miss", "key", h.redact(key))
}

func (h *Hooks) StaleServed(key string) {
	if h.l == nil || !sample(h.opts.StaleEvery, &h.staleCtr) {
		return
	}
	h.l.Debug("cachify.stale_served", "key", h.redact(key))
}

func (h *Hooks) RefreshStarted(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("cachify.refresh_started", "key", h.redact(key))
}

func (h *Hooks) RefreshFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cachify.refresh_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) RefreshDropped(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("cachify.refresh_dropped", "key", h.redact(key))
}

func (h *Hooks) FallbackServed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cachify.fallback_served",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) StoreError(op, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("cachify.store_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("cachify.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("cachify.provider_set_rejected", "key", h.redact(storageKey))
}
