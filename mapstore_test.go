package cachify

import (
	"context"
	"testing"
	"time"
)

func TestMapStore(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	s := NewMapStore[int](clock.Now)

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	e := NewEntry(7, clock.Now(), time.Minute, 0)
	if err := s.Set(ctx, "k", e, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "forever", e, 0); err != nil {
		t.Fatal(err)
	}
	if got, ok, _ := s.Get(ctx, "k"); !ok || got.Value != 7 {
		t.Fatalf("Get=%+v ok=%v", got, ok)
	}

	clock.Advance(time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("entry past its hint must be gone")
	}
	if _, ok, _ := s.Get(ctx, "forever"); !ok {
		t.Fatalf("entry without hint must stay")
	}
	if s.Len() != 1 {
		t.Fatalf("Len=%d, want 1", s.Len())
	}

	if err := s.Delete(ctx, "forever"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "forever"); err != nil {
		t.Fatalf("Delete must be idempotent: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len=%d", s.Len())
	}
}
