package types

import "strconv"

// BoolType is the 1-byte boolean type (spec.md §4.B). Textual forms
// {"0","1","true","false"} and their hex forms ("0x0","0x1") are accepted;
// the blackboard value is always 0 or 1.
type BoolType struct{}

func (BoolType) ByteSize() int { return 1 }

func (t BoolType) ToBlackboard(s string, ctx AccessContext) (uint32, error) {
	v, err := parseBool(s)
	if err != nil {
		return 0, err
	}
	return t.ToBlackboardBool(v)
}

func (BoolType) ToBlackboardBool(v bool) (uint32, error) {
	if v {
		return 1, nil
	}
	return 0, nil
}

func (t BoolType) FromBlackboard(word uint32, ctx AccessContext) (string, error) {
	v, err := t.FromBlackboardBool(word)
	if err != nil {
		return "", err
	}
	if ctx.Space == Raw {
		if ctx.RawFormat == Hex {
			return "0x" + strconv.FormatUint(uint64(word&1), 16), nil
		}
		return strconv.FormatUint(uint64(word&1), 10), nil
	}
	if v {
		return "true", nil
	}
	return "false", nil
}

func (BoolType) FromBlackboardBool(word uint32) (bool, error) {
	return word&1 != 0, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "1", "true", "0x1", "0X1":
		return true, nil
	case "0", "false", "0x0", "0X0":
		return false, nil
	}
	return false, formatErr("invalid boolean literal %q", s)
}
