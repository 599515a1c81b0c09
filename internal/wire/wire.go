package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1
)

var (
	ErrCorrupt = errors.New("cachify: corrupt entry")
	magic4     = [...]byte{'C', 'F', 'Y', 'E'}
)

const hdrLen = 4 + 1 + 1 + 8 + 8 + 8 + 4

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Meta is the timing metadata framed in front of an encoded value.
// Zero TTL / StaleWindow mean "absent".
type Meta struct {
	CreatedAt   time.Time
	TTL         time.Duration
	StaleWindow time.Duration
}

// Entry: magic(4) | ver(1) | kind(1=entry) | created(i64 unix nano be) |
// ttl(i64 ns be) | stale(i64 ns be) | vlen(u32 be) | payload(vlen)
func EncodeEntry(m Meta, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, errors.New("cachify: payload too large for wire frame")
	}
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(m.CreatedAt.UnixNano()))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(clampNonNeg(m.TTL)))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(clampNonNeg(m.StaleWindow)))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeEntry validates framing strictly: trailing bytes are corruption.
// The returned payload aliases b.
func DecodeEntry(b []byte) (Meta, []byte, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Meta{}, nil, ErrCorrupt
	}
	off := 6

	created := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	ttl := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	stale := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	if ttl < 0 || stale < 0 {
		return Meta{}, nil, ErrCorrupt
	}

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Meta{}, nil, ErrCorrupt
	}

	m := Meta{
		CreatedAt:   time.Unix(0, created),
		TTL:         time.Duration(ttl),
		StaleWindow: time.Duration(stale),
	}
	return m, b[off : off+vlen], nil
}

func clampNonNeg(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
