// Package blackboard implements the flat byte buffer that holds every
// parameter's current value (spec.md §3 "Blackboard", §4.A).
//
// The byte-offset/endianness access pattern mirrors the teacher's IIO ring
// buffer decoding (hardware/iio/ring_test.go), which reads fixed-width
// little-endian fields out of a byte slice at known offsets; here the same
// shape is promoted to a reusable type instead of one-off local parsing.
package blackboard

import (
	"encoding/binary"
	"io"

	"pfw/internal/pferrors"
)

// Blackboard is a contiguous byte buffer of fixed size, created once at
// load time (spec.md §3). It is a passive container: concurrency is
// controlled by its holder (spec.md §5), so Blackboard itself does no
// locking.
type Blackboard struct {
	data []byte
}

// New creates a zero-filled blackboard of the given size.
func New(size int) *Blackboard {
	return &Blackboard{data: make([]byte, size)}
}

// Size returns the blackboard's fixed byte size.
func (b *Blackboard) Size() int { return len(b.data) }

func (b *Blackboard) checkBounds(offset, width int) error {
	if offset < 0 || width < 0 || offset+width > len(b.data) {
		return pferrors.ForKind(pferrors.InvariantViolation,
			"access [%d,%d) out of blackboard bounds [0,%d)", offset, offset+width, len(b.data))
	}
	return nil
}

// RawRead copies len(dst) bytes starting at offset into dst, untouched by
// endianness. Used by subsystems accessing raw regions (spec.md §4.A).
func (b *Blackboard) RawRead(dst []byte, offset int) error {
	if err := b.checkBounds(offset, len(dst)); err != nil {
		return err
	}
	copy(dst, b.data[offset:offset+len(dst)])
	return nil
}

// RawWrite copies src into the blackboard at offset, untouched by endianness.
func (b *Blackboard) RawWrite(src []byte, offset int) error {
	if err := b.checkBounds(offset, len(src)); err != nil {
		return err
	}
	copy(b.data[offset:offset+len(src)], src)
	return nil
}

// Read reads a width-byte (1, 2 or 4) integer at offset into a u32, reversing
// byte order first if bigEndian is set (spec.md §4.A).
func (b *Blackboard) Read(offset, width int, bigEndian bool) (uint32, error) {
	if width != 1 && width != 2 && width != 4 {
		return 0, pferrors.ForKind(pferrors.InvariantViolation, "unsupported access width %d", width)
	}
	if err := b.checkBounds(offset, width); err != nil {
		return 0, err
	}
	buf := make([]byte, width)
	copy(buf, b.data[offset:offset+width])
	if bigEndian {
		reverse(buf)
	}
	switch width {
	case 1:
		return uint32(buf[0]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(buf)), nil
	default:
		return binary.LittleEndian.Uint32(buf), nil
	}
}

// Write writes the low width bytes of v at offset, reversing byte order
// first if bigEndian is set.
func (b *Blackboard) Write(v uint32, offset, width int, bigEndian bool) error {
	if width != 1 && width != 2 && width != 4 {
		return pferrors.ForKind(pferrors.InvariantViolation, "unsupported access width %d", width)
	}
	if err := b.checkBounds(offset, width); err != nil {
		return err
	}
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	default:
		binary.LittleEndian.PutUint32(buf, v)
	}
	if bigEndian {
		reverse(buf)
	}
	copy(b.data[offset:offset+width], buf)
	return nil
}

func reverse(buf []byte) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}

// RestoreFrom copies other's bytes into self starting at offsetIntoSelf,
// used by AreaConfiguration.restore (spec.md §4.F).
func (b *Blackboard) RestoreFrom(other []byte, offsetIntoSelf int) error {
	return b.RawWrite(other, offsetIntoSelf)
}

// SaveTo copies self's bytes starting at offsetIntoSelf into dst, used by
// AreaConfiguration.save.
func (b *Blackboard) SaveTo(dst []byte, offsetIntoSelf int) error {
	return b.RawRead(dst, offsetIntoSelf)
}

// Serialize writes (direction=true) or reads (direction=false) the entire
// blackboard image to/from stream, spec.md §4.A.
func (b *Blackboard) Serialize(stream io.ReadWriter, out bool) error {
	if out {
		_, err := stream.Write(b.data)
		return err
	}
	_, err := io.ReadFull(stream, b.data)
	return err
}

// Bytes exposes the underlying slice, for callers (e.g. tests and
// AreaConfiguration) that need a direct view. Callers must not retain it
// across concurrent writers; the parameter lock (spec.md §5) is what makes
// this safe in the framework's own code.
func (b *Blackboard) Bytes() []byte { return b.data }
