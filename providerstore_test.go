package cachify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/cachify/codec"
	"github.com/unkn0wn-root/cachify/internal/wire"
)

type user struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

func newProviderStore(t *testing.T, mp *memProvider, hooks Hooks) *ProviderStore[user] {
	t.Helper()
	s, err := NewProviderStore(ProviderStoreOptions[user]{
		Namespace: "user",
		Provider:  mp,
		Codec:     codec.JSON[user]{},
		Hooks:     hooks,
		MaxKeyLen: 32,
	})
	if err != nil {
		t.Fatalf("NewProviderStore: %v", err)
	}
	return s
}

func TestNewProviderStore_Required(t *testing.T) {
	mp := newMemProvider()
	cases := []ProviderStoreOptions[user]{
		{Codec: codec.JSON[user]{}, Namespace: "u"},
		{Provider: mp, Namespace: "u"},
		{Provider: mp, Codec: codec.JSON[user]{}},
	}
	for i, opts := range cases {
		if _, err := NewProviderStore(opts); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestProviderStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newProviderStore(t, mp, nil)

	created := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)
	in := NewEntry(user{ID: "1", Name: "Ada"}, created, time.Minute, 2*time.Minute)
	if err := s.Set(ctx, "1", in, 3*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, ok := mp.entry("cfy:user:1")
	if !ok {
		t.Fatalf("expected storage key cfy:user:1")
	}
	if raw.ttl != 3*time.Minute {
		t.Fatalf("ttl hint not forwarded: %v", raw.ttl)
	}

	out, ok, err := s.Get(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if out.Value != in.Value || !out.CreatedAt.Equal(created) || out.TTL != in.TTL || out.StaleWindow != in.StaleWindow {
		t.Fatalf("got %+v want %+v", out, in)
	}

	if err := s.Delete(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "1"); ok {
		t.Fatalf("expected miss after Delete")
	}
}

func TestProviderStore_LongKeysHashed(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newProviderStore(t, mp, nil)

	long := strings.Repeat("x", 100)
	if err := s.Set(ctx, long, NewEntry(user{ID: "x"}, time.Now(), 0, 0), 0); err != nil {
		t.Fatal(err)
	}
	for k := range mp.m {
		if !strings.HasPrefix(k, "cfy:user:h:") || len(k) > 100 {
			t.Fatalf("unexpected storage key %q", k)
		}
	}
	if got, ok, _ := s.Get(ctx, long); !ok || got.Value.ID != "x" {
		t.Fatalf("long key lookup failed")
	}
}

func TestProviderStore_SelfHeal(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	s := newProviderStore(t, mp, hooks)

	mp.put("cfy:user:corrupt", []byte("not a frame"))
	if _, ok, err := s.Get(ctx, "corrupt"); ok || err != nil {
		t.Fatalf("corrupt: ok=%v err=%v", ok, err)
	}
	if _, ok := mp.entry("cfy:user:corrupt"); ok {
		t.Fatalf("corrupt entry not deleted")
	}

	frame, err := wire.EncodeEntry(wire.Meta{CreatedAt: time.Now()}, []byte("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	mp.put("cfy:user:bad", frame)
	if _, ok, err := s.Get(ctx, "bad"); ok || err != nil {
		t.Fatalf("bad payload: ok=%v err=%v", ok, err)
	}
	if _, ok := mp.entry("cfy:user:bad"); ok {
		t.Fatalf("undecodable entry not deleted")
	}
	if hooks.healed.Load() != 2 {
		t.Fatalf("healed=%d, want 2", hooks.healed.Load())
	}
}

func TestProviderStore_SetRejected(t *testing.T) {
	mp := newMemProvider()
	mp.reject = true
	hooks := &recHooks{}
	s := newProviderStore(t, mp, hooks)

	if err := s.Set(context.Background(), "1", NewEntry(user{}, time.Now(), 0, 0), 0); err != nil {
		t.Fatalf("rejection is not an error: %v", err)
	}
	if hooks.rejected.Load() != 1 {
		t.Fatalf("rejected=%d", hooks.rejected.Load())
	}
}

func TestCache_OverProviderStore(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	mp := newMemProvider()
	store, err := NewProviderStore(ProviderStoreOptions[user]{
		Namespace: "user",
		Provider:  mp,
		Codec:     codec.Msgpack[user]{},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(Options[user]{Store: store, Namespace: "user", Now: clock.Now, FallbackRetention: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	calls := 0
	load := func(context.Context) (user, error) {
		calls++
		return user{ID: "1", Name: "Ada"}, nil
	}
	opts := CallOptions[user]{TTL: time.Minute, StaleWhileRevalidate: time.Minute}
	for i := 0; i < 3; i++ {
		u, err := c.GetOrSet(ctx, "1", load, opts)
		if err != nil || u.Name != "Ada" {
			t.Fatalf("u=%+v err=%v", u, err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
	if raw, ok := mp.entry("cfy:user:1"); !ok || raw.ttl != 2*time.Minute+time.Hour {
		t.Fatalf("expected retention hint of ttl+stale+grace, got %+v ok=%v", raw, ok)
	}
}
