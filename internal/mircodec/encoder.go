package mircodec

import (
	"encoding/binary"

	"github.com/roach88/mirkit/internal/mir"
)

// Encoder appends encoded values to an internal buffer.
type Encoder struct {
	buf []byte

	// ClearCrossCrate drops crate-local payloads. Set it when writing
	// metadata for other crates.
	ClearCrossCrate bool
}

// NewEncoder returns an encoder for the given channel.
func NewEncoder(clearCrossCrate bool) *Encoder {
	return &Encoder{ClearCrossCrate: clearCrossCrate}
}

// Bytes returns the encoded data.
func (e *Encoder) Bytes() []byte { return e.buf }

// Reset discards the encoded data, keeping the buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// EmitU8 writes a single byte.
func (e *Encoder) EmitU8(b byte) { e.buf = append(e.buf, b) }

// EmitBool writes a bool as one byte.
func (e *Encoder) EmitBool(v bool) {
	if v {
		e.EmitU8(1)
	} else {
		e.EmitU8(0)
	}
}

// EmitUvarint writes an unsigned varint.
func (e *Encoder) EmitUvarint(u uint64) { e.buf = binary.AppendUvarint(e.buf, u) }

// EmitVarint writes a zig-zag signed varint.
func (e *Encoder) EmitVarint(v int64) { e.buf = binary.AppendVarint(e.buf, v) }

// EmitUint64 writes a fixed-width big-endian uint64.
func (e *Encoder) EmitUint64(u uint64) { e.buf = binary.BigEndian.AppendUint64(e.buf, u) }

// EmitString writes a length-prefixed string.
func (e *Encoder) EmitString(s string) {
	e.EmitUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// EmitLen writes a slice length.
func (e *Encoder) EmitLen(n int) { e.EmitUvarint(uint64(n)) }

// EncodeClearCrossCrate writes c. On a clearing encoder nothing is
// written. Otherwise a tag byte follows, 0 for Clear and 1 for Set, and
// Set is followed by the payload.
func EncodeClearCrossCrate[T any](e *Encoder, c mir.ClearCrossCrate[T], encode func(*Encoder, T)) {
	if e.ClearCrossCrate {
		return
	}
	v, ok := c.Get()
	if !ok {
		e.EmitU8(tagClear)
		return
	}
	e.EmitU8(tagSet)
	encode(e, v)
}

const (
	tagClear byte = 0
	tagSet   byte = 1
)
