package types

import "strconv"

// BitField describes one named bit field within a BitBlockType: its bit
// position, width (<=32) and signedness (spec.md §4.B).
type BitField struct {
	Name   string
	Pos    int
	Width  int
	Signed bool
	Max    uint32
}

// BitBlockType is a fixed-size word containing named bit fields. Writing a
// field masks its bits into the block word, preserving sibling bits;
// reading extracts and optionally sign-extends (spec.md §4.B, §4.C).
type BitBlockType struct {
	Bytes  int
	Fields []BitField
}

// NewBitBlockType validates field layout (no overlap, in-bounds, width<=32)
// and returns a BitBlockType.
func NewBitBlockType(byteSize int, fields []BitField) (*BitBlockType, error) {
	total := byteSize * 8
	occupied := make([]bool, total)
	for _, f := range fields {
		if f.Width <= 0 || f.Width > 32 {
			return nil, formatErr("bit field %q has invalid width %d", f.Name, f.Width)
		}
		if f.Pos < 0 || f.Pos+f.Width > total {
			return nil, formatErr("bit field %q [%d,%d) exceeds block width %d", f.Name, f.Pos, f.Pos+f.Width, total)
		}
		for i := f.Pos; i < f.Pos+f.Width; i++ {
			if occupied[i] {
				return nil, formatErr("bit field %q overlaps another field at bit %d", f.Name, i)
			}
			occupied[i] = true
		}
	}
	return &BitBlockType{Bytes: byteSize, Fields: fields}, nil
}

func (t *BitBlockType) ByteSize() int { return t.Bytes }

// Field looks up a field by name.
func (t *BitBlockType) Field(name string) (BitField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return BitField{}, false
}

// Extract returns the unsigned raw bits of f within word, at position 0.
func (t *BitBlockType) Extract(word uint32, f BitField) uint32 {
	return uint32((uint64(word) >> uint(f.Pos)) & maskForBits(f.Width))
}

// ExtractSigned is like Extract but sign-extends when f.Signed.
func (t *BitBlockType) ExtractSigned(word uint32, f BitField) int64 {
	raw := uint64(t.Extract(word, f))
	if f.Signed {
		return signExtend(raw, f.Width)
	}
	return int64(raw)
}

// Set masks value (its low f.Width bits) into word at f's position,
// preserving sibling bits, after validating value fits the field.
func (t *BitBlockType) Set(word uint32, f BitField, value uint32) (uint32, error) {
	mask := maskForBits(f.Width)
	if uint64(value) > mask {
		return 0, rangeErr("value %d does not fit in %d-bit field %q", value, f.Width, f.Name)
	}
	if f.Max != 0 && uint64(value) > uint64(f.Max) {
		return 0, rangeErr("value %d exceeds declared max %d for field %q", value, f.Max, f.Name)
	}
	cleared := uint64(word) &^ (mask << uint(f.Pos))
	return uint32(cleared | (uint64(value) << uint(f.Pos))), nil
}

// ToField parses a textual literal for field f, applying the same
// hex-sign-extension / decimal-signed rule as IntegerType.
func (t *BitBlockType) ToField(f BitField, s string) (uint32, error) {
	it := IntegerType{Signed: f.Signed, Bits: f.Width, Min: fieldMin(f), Max: fieldMax(f)}
	raw, err := it.parseLiteral(s)
	if err != nil {
		return 0, err
	}
	if err := it.checkRange(raw); err != nil {
		return 0, err
	}
	return uint32(raw) & uint32(maskForBits(f.Width)), nil
}

// FromField renders field f's value out of word.
func (t *BitBlockType) FromField(f BitField, word uint32, ctx AccessContext) (string, error) {
	raw := t.Extract(word, f)
	if ctx.Space == Raw && ctx.RawFormat == Hex {
		return "0x" + strconv.FormatUint(uint64(raw), 16), nil
	}
	return strconv.FormatInt(t.ExtractSigned(word, f), 10), nil
}

func fieldMin(f BitField) int64 {
	if !f.Signed {
		return 0
	}
	return -(int64(1) << uint(f.Width-1))
}

func fieldMax(f BitField) int64 {
	if f.Max != 0 {
		return int64(f.Max)
	}
	if !f.Signed {
		return int64(maskForBits(f.Width))
	}
	return (int64(1) << uint(f.Width-1)) - 1
}
