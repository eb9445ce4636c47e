package types

import "strconv"

// EnumPair is a single (literal, numeric) association of an EnumType.
type EnumPair struct {
	Literal string
	Numeric int64
}

// EnumType is a set of (literal, numeric) pairs stored in Bytes bytes
// (spec.md §4.B). Duplicates among literals or numerics are a load-time
// error; callers are expected to validate that at construction via NewEnumType.
type EnumType struct {
	Bytes int
	Pairs []EnumPair

	byLiteral map[string]int64
	byNumeric map[int64]string
}

// NewEnumType builds an EnumType, rejecting duplicate literals or numerics
// and numerics that don't fit in Bytes bytes.
func NewEnumType(byteSize int, pairs []EnumPair) (*EnumType, error) {
	t := &EnumType{
		Bytes:     byteSize,
		Pairs:     pairs,
		byLiteral: make(map[string]int64, len(pairs)),
		byNumeric: make(map[int64]string, len(pairs)),
	}
	max := maskForBits(byteSize * 8)
	for _, p := range pairs {
		if _, dup := t.byLiteral[p.Literal]; dup {
			return nil, formatErr("duplicate enum literal %q", p.Literal)
		}
		if _, dup := t.byNumeric[p.Numeric]; dup {
			return nil, formatErr("duplicate enum numeric %d", p.Numeric)
		}
		if p.Numeric < 0 || uint64(p.Numeric) > max {
			return nil, rangeErr("enum numeric %d for %q does not fit in %d byte(s)", p.Numeric, p.Literal, byteSize)
		}
		t.byLiteral[p.Literal] = p.Numeric
		t.byNumeric[p.Numeric] = p.Literal
	}
	return t, nil
}

func (t *EnumType) ByteSize() int { return t.Bytes }

func (t *EnumType) ToBlackboard(s string, ctx AccessContext) (uint32, error) {
	if n, ok := t.byLiteral[s]; ok {
		return uint32(n), nil
	}
	// Raw value space additionally accepts numeric/hex forms directly.
	if ctx.Space == Raw {
		if n, ok := parseRawIntegral(s); ok {
			if _, known := t.byNumeric[n]; known {
				return uint32(n), nil
			}
			return 0, rangeErr("enum numeric %d has no matching literal", n)
		}
	}
	return 0, formatErr("%q is not a valid literal for this enum", s)
}

func (t *EnumType) FromBlackboard(word uint32, ctx AccessContext) (string, error) {
	n := int64(word) & int64(maskForBits(t.Bytes*8))
	if ctx.Space == Raw {
		if ctx.RawFormat == Hex {
			return "0x" + strconv.FormatInt(n, 16), nil
		}
		return strconv.FormatInt(n, 10), nil
	}
	lit, ok := t.byNumeric[n]
	if !ok {
		return "", rangeErr("numeric value %d does not map to any enum literal", n)
	}
	return lit, nil
}

func parseRawIntegral(s string) (int64, bool) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		u, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return int64(u), true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
