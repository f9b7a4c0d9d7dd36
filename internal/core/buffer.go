package core

import (
	"encoding/binary"
	"fmt"
)

// Data source names carried by buffers and tree nodes.
const (
	SourceFrame       = ""
	SourceReassembled = "reassembled"
)

// Buffer is an immutable view over captured bytes. Sub-views remember their
// origin so that offsets reported in the tree stay relative to the outermost
// buffer of the same source.
type Buffer struct {
	data   []byte
	origin int
	source string
}

// NewBuffer wraps a frame payload that starts at the batadv type byte.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data, source: SourceFrame}
}

// NewSourceBuffer wraps bytes that do not belong to the captured frame,
// such as a reassembled fragment payload.
func NewSourceBuffer(source string, data []byte) *Buffer {
	return &Buffer{data: data, source: source}
}

// Len returns the number of bytes in the view.
func (b *Buffer) Len() int { return len(b.data) }

// Source returns the data source name.
func (b *Buffer) Source() string { return b.source }

// Origin returns the position of the first byte within its source.
func (b *Buffer) Origin() int { return b.origin }

// Abs converts a view-relative offset to a source-relative one.
func (b *Buffer) Abs(off int) int { return b.origin + off }

// Data returns the underlying bytes of the view.
func (b *Buffer) Data() []byte { return b.data }

// Remaining returns the number of bytes from off to the end, never negative.
func (b *Buffer) Remaining(off int) int {
	if off < 0 || off >= len(b.data) {
		return 0
	}
	return len(b.data) - off
}

func (b *Buffer) check(off, n int) error {
	if off < 0 || n < 0 || off+n > len(b.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrPacketTooShort, n, b.Abs(off), len(b.data))
	}
	return nil
}

// Bytes returns n bytes starting at off without copying.
func (b *Buffer) Bytes(off, n int) ([]byte, error) {
	if err := b.check(off, n); err != nil {
		return nil, err
	}
	return b.data[off : off+n], nil
}

// Uint8 reads one byte.
func (b *Buffer) Uint8(off int) (uint8, error) {
	if err := b.check(off, 1); err != nil {
		return 0, err
	}
	return b.data[off], nil
}

// Uint16 reads a big-endian 16-bit value.
func (b *Buffer) Uint16(off int) (uint16, error) {
	if err := b.check(off, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b.data[off:]), nil
}

// Uint32 reads a big-endian 32-bit value.
func (b *Buffer) Uint32(off int) (uint32, error) {
	if err := b.check(off, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b.data[off:]), nil
}

// HardwareAddr reads a 6-byte address.
func (b *Buffer) HardwareAddr(off int) (HardwareAddr, error) {
	var a HardwareAddr
	if err := b.check(off, len(a)); err != nil {
		return a, err
	}
	copy(a[:], b.data[off:])
	return a, nil
}

// Slice returns a sub-view of n bytes at off. A negative n selects the rest
// of the view. Like a bounded subset, n is clamped to what is available.
func (b *Buffer) Slice(off, n int) *Buffer {
	rest := b.Remaining(off)
	if n < 0 || n > rest {
		n = rest
	}
	start := off
	if rest == 0 {
		start = len(b.data)
	}
	return &Buffer{
		data:   b.data[start : start+n],
		origin: b.origin + start,
		source: b.source,
	}
}
