package mircodec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/mirkit/internal/mir"
)

// ErrTruncated is reported when the input ends in the middle of a value.
var ErrTruncated = errors.New("mircodec: unexpected end of input")

// Decoder reads values written by an Encoder. The first failure is sticky:
// later reads return zero values and Err reports it.
type Decoder struct {
	src []byte
	err error

	// ClearCrossCrate must match the encoder's setting.
	ClearCrossCrate bool
}

// NewDecoder returns a decoder over src.
func NewDecoder(src []byte, clearCrossCrate bool) *Decoder {
	return &Decoder{src: src, ClearCrossCrate: clearCrossCrate}
}

// Err returns the first decoding error.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.src) }

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// ReadU8 reads a single byte.
func (d *Decoder) ReadU8() byte {
	if d.err != nil {
		return 0
	}
	if len(d.src) < 1 {
		d.fail(ErrTruncated)
		return 0
	}
	b := d.src[0]
	d.src = d.src[1:]
	return b
}

// ReadBool reads a bool.
func (d *Decoder) ReadBool() bool { return d.ReadU8() != 0 }

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() uint64 {
	if d.err != nil {
		return 0
	}
	u, n := binary.Uvarint(d.src)
	if n <= 0 {
		d.fail(fmt.Errorf("reading uvarint: %w", ErrTruncated))
		return 0
	}
	d.src = d.src[n:]
	return u
}

// ReadVarint reads a zig-zag signed varint.
func (d *Decoder) ReadVarint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.src)
	if n <= 0 {
		d.fail(fmt.Errorf("reading varint: %w", ErrTruncated))
		return 0
	}
	d.src = d.src[n:]
	return v
}

// ReadUint64 reads a fixed-width big-endian uint64.
func (d *Decoder) ReadUint64() uint64 {
	if d.err != nil {
		return 0
	}
	if len(d.src) < 8 {
		d.fail(ErrTruncated)
		return 0
	}
	u := binary.BigEndian.Uint64(d.src)
	d.src = d.src[8:]
	return u
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() string {
	n := d.ReadLen()
	if d.err != nil {
		return ""
	}
	s := string(d.src[:n])
	d.src = d.src[n:]
	return s
}

// ReadLen reads a slice length and checks it against the remaining input,
// since every element takes at least one byte.
func (d *Decoder) ReadLen() int {
	n := d.ReadUvarint()
	if d.err != nil {
		return 0
	}
	if n > uint64(len(d.src)) {
		d.fail(fmt.Errorf("length %d exceeds remaining %d bytes: %w", n, len(d.src), ErrTruncated))
		return 0
	}
	return int(n)
}

// invalidTag aborts on a variant tag no encoder writes.
func invalidTag(tag byte, what string) {
	panic(fmt.Sprintf("mircodec: invalid enum variant tag while decoding `%s`, expected 0..N, got %d", what, tag))
}

// DecodeClearCrossCrate reads a value written by EncodeClearCrossCrate. A
// clearing decoder reads nothing and returns Clear. An unknown tag panics.
func DecodeClearCrossCrate[T any](d *Decoder, decode func(*Decoder) T) mir.ClearCrossCrate[T] {
	if d.ClearCrossCrate {
		return mir.ClearCross[T]()
	}
	switch tag := d.ReadU8(); tag {
	case tagClear:
		return mir.ClearCross[T]()
	case tagSet:
		v := decode(d)
		return mir.SetCrossCrate(v)
	default:
		if d.err != nil {
			return mir.ClearCross[T]()
		}
		panic(fmt.Sprintf("mircodec: invalid tag for ClearCrossCrate: %d", tag))
	}
}
