package otelhook

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere adds the data points of an int64 sum whose attributes contain key=value.
func sumWhere(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	h, err := New(Options{MeterProvider: mp, Namespace: "user"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h.Hit("a")
	h.Hit("b")
	h.Miss("a")
	h.StaleServed("a")
	h.RefreshStarted("a")
	h.RefreshFailed("a", errors.New("boom"))
	h.FallbackServed("a", errors.New("boom"))
	h.StoreError("get", "a", errors.New("down"))
	h.SelfHeal("cfy:user:a", "corrupt")
	h.ProviderSetRejected("cfy:user:a")

	rm := collect(t, reader)

	lookups := findMetric(rm, MetricLookups)
	if lookups == nil {
		t.Fatal("lookups metric not found")
	}
	if got := sumWhere(t, lookups, "result", "hit"); got != 2 {
		t.Errorf("hits=%d, want 2", got)
	}
	if got := sumWhere(t, lookups, "result", "miss"); got != 1 {
		t.Errorf("misses=%d, want 1", got)
	}
	if got := sumWhere(t, lookups, "cachify.namespace", "user"); got != 4 {
		t.Errorf("namespaced lookups=%d, want 4", got)
	}

	refreshes := findMetric(rm, MetricRefreshes)
	if refreshes == nil || sumWhere(t, refreshes, "outcome", "failed") != 1 {
		t.Errorf("expected one failed refresh")
	}
	for _, name := range []string{MetricFallbacks, MetricStoreErrs, MetricSelfHeals, MetricRejected} {
		m := findMetric(rm, name)
		if m == nil {
			t.Fatalf("%s not found", name)
		}
		if got := sumWhere(t, m, "", ""); got != 1 {
			t.Errorf("%s=%d, want 1", name, got)
		}
	}
}

func TestDefaultMeterProvider(t *testing.T) {
	h, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.Miss("k") // global no-op provider; must not panic
}
