package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned by Limit.Decode for oversized payloads.
var ErrTooLarge = errors.New("codec: payload too large")

// Limit wraps another codec and refuses to decode payloads larger than
// MaxDecode bytes (0 disables the check). Use it when entries come from a
// shared store other writers can reach. Encode is forwarded unchanged.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
