package codec

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type user struct {
	ID   string    `json:"id" msgpack:"id" cbor:"id"`
	Name string    `json:"name" msgpack:"name" cbor:"name"`
	Seen time.Time `json:"seen" msgpack:"seen" cbor:"seen"`
}

func roundTrip[V any](t *testing.T, c Codec[V], in V) V {
	t.Helper()
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestStructCodecs(t *testing.T) {
	in := user{ID: "1", Name: "Ada", Seen: time.Unix(1700000000, 0).UTC()}
	codecs := map[string]Codec[user]{
		"json":    JSON[user]{},
		"msgpack": Msgpack[user]{},
		"cbor":    MustCBOR[user](false),
		"cbordet": MustCBOR[user](true),
	}
	for name, c := range codecs {
		out := roundTrip(t, c, in)
		if out.ID != in.ID || out.Name != in.Name || !out.Seen.Equal(in.Seen) {
			t.Fatalf("%s: got %+v want %+v", name, out, in)
		}
	}
}

func TestCBORDeterministicStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	first, err := c.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := c.Encode(m)
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding changed between runs")
		}
	}
}

func TestRawCodecs(t *testing.T) {
	if got := roundTrip[[]byte](t, Bytes{}, []byte("abc")); string(got) != "abc" {
		t.Fatalf("bytes: %q", got)
	}
	if got := roundTrip[string](t, String{}, "héllo"); got != "héllo" {
		t.Fatalf("string: %q", got)
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 3}
	if _, err := c.Decode([]byte("abcd")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if v, err := c.Decode([]byte("abc")); err != nil || v != "abc" {
		t.Fatalf("at limit: v=%q err=%v", v, err)
	}
	unlimited := Limit[string]{Inner: String{}}
	if _, err := unlimited.Decode(bytes.Repeat([]byte("x"), 1<<16)); err != nil {
		t.Fatalf("MaxDecode=0 must disable the check: %v", err)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	out := roundTrip[*wrapperspb.StringValue](t, c, wrapperspb.String("hello"))
	if out.GetValue() != "hello" {
		t.Fatalf("protobuf: got %q", out.GetValue())
	}
}
