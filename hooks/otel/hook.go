// Package otelhook turns cachify events into OpenTelemetry counters.
//
// Keys are never recorded as attributes; cardinality stays bounded by the
// namespace and the event kind.
package otelhook

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/cachify"
)

const instrumentationName = "github.com/unkn0wn-root/cachify/hooks/otel"

// Metric names.
const (
	MetricLookups   = "cachify.lookups"
	MetricRefreshes = "cachify.refreshes"
	MetricFallbacks = "cachify.fallbacks"
	MetricStoreErrs = "cachify.store.errors"
	MetricSelfHeals = "cachify.store.self_heals"
	MetricRejected  = "cachify.store.rejected"
)

type Options struct {
	// MeterProvider to create instruments from; nil => otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// Namespace is attached to every data point as cachify.namespace. Optional.
	Namespace string
}

type Hooks struct {
	lookups   metric.Int64Counter
	refreshes metric.Int64Counter
	fallbacks metric.Int64Counter
	storeErrs metric.Int64Counter
	selfHeals metric.Int64Counter
	rejected  metric.Int64Counter

	base []attribute.KeyValue
}

var _ cachify.Hooks = (*Hooks)(nil)

func New(opts Options) (*Hooks, error) {
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	h := &Hooks{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&h.lookups, MetricLookups, "Cache lookups by result (hit, miss, stale)", "{lookup}"},
		{&h.refreshes, MetricRefreshes, "Background refreshes by outcome (started, failed, dropped)", "{refresh}"},
		{&h.fallbacks, MetricFallbacks, "Previous values served after a failed computation", "{fallback}"},
		{&h.storeErrs, MetricStoreErrs, "Store failures by operation", "{error}"},
		{&h.selfHeals, MetricSelfHeals, "Undecodable entries deleted on read", "{entry}"},
		{&h.rejected, MetricRejected, "Writes rejected by the provider", "{write}"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = ctr
	}

	if opts.Namespace != "" {
		h.base = []attribute.KeyValue{attribute.String("cachify.namespace", opts.Namespace)}
	}
	return h, nil
}

func (h *Hooks) add(c metric.Int64Counter, attrs ...attribute.KeyValue) {
	all := make([]attribute.KeyValue, 0, len(h.base)+len(attrs))
	all = append(all, h.base...)
	all = append(all, attrs...)
	c.Add(context.Background(), 1, metric.WithAttributes(all...))
}

func (h *Hooks) Hit(string)         { h.add(h.lookups, attribute.String("result", "hit")) }
func (h *Hooks) Miss(string)        { h.add(h.lookups, attribute.String("result", "miss")) }
func (h *Hooks) StaleServed(string) { h.add(h.lookups, attribute.String("result", "stale")) }

func (h *Hooks) RefreshStarted(string) { h.add(h.refreshes, attribute.String("outcome", "started")) }
func (h *Hooks) RefreshFailed(string, error) {
	h.add(h.refreshes, attribute.String("outcome", "failed"))
}
func (h *Hooks) RefreshDropped(string) { h.add(h.refreshes, attribute.String("outcome", "dropped")) }

func (h *Hooks) FallbackServed(string, error) { h.add(h.fallbacks) }

func (h *Hooks) StoreError(op, _ string, _ error) {
	h.add(h.storeErrs, attribute.String("op", op))
}

func (h *Hooks) SelfHeal(_, reason string) {
	h.add(h.selfHeals, attribute.String("reason", reason))
}

func (h *Hooks) ProviderSetRejected(string) { h.add(h.rejected) }
