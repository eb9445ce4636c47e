package types

import (
	"math"
	"strconv"
	"strings"
)

// Float32Type is the 4-byte IEEE-754 binary32 type (spec.md §4.B). NaN and
// infinities are rejected on textual write; hex literals are only valid in
// raw value space, where they are interpreted as the bit pattern.
type Float32Type struct {
	Min, Max float32
}

func (Float32Type) ByteSize() int { return 4 }

func (t Float32Type) ToBlackboard(s string, ctx AccessContext) (uint32, error) {
	trimmed := strings.TrimSpace(s)
	if ctx.Space == Raw && (strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X")) {
		bits, err := strconv.ParseUint(trimmed[2:], 16, 32)
		if err != nil {
			return 0, formatErr("invalid hex literal %q: %v", s, err)
		}
		v := math.Float32frombits(uint32(bits))
		if err := t.checkFinite(v); err != nil {
			return 0, err
		}
		return uint32(bits), nil
	}
	f, err := strconv.ParseFloat(trimmed, 32)
	if err != nil {
		return 0, formatErr("invalid float literal %q: %v", s, err)
	}
	return t.ToBlackboardFloat(f)
}

func (t Float32Type) checkFinite(v float32) error {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return formatErr("NaN/infinite values are not accepted: got %v", v)
	}
	return nil
}

func (t Float32Type) ToBlackboardFloat(v float64) (uint32, error) {
	f := float32(v)
	if err := t.checkFinite(f); err != nil {
		return 0, err
	}
	if f < t.Min || f > t.Max {
		return 0, rangeErr("value %v out of range [%v,%v]", f, t.Min, t.Max)
	}
	return math.Float32bits(f), nil
}

func (t Float32Type) FromBlackboard(word uint32, ctx AccessContext) (string, error) {
	if ctx.Space == Raw && ctx.RawFormat == Hex {
		return "0x" + strconv.FormatUint(uint64(word), 16), nil
	}
	f, err := t.FromBlackboardFloat(word)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func (t Float32Type) FromBlackboardFloat(word uint32) (float64, error) {
	return float64(math.Float32frombits(word)), nil
}
