package types

import "testing"

// TestIntegerRange covers spec.md §8 scenario 1: IntegerParameter<signed,8>
// Min=-10 Max=10.
func TestIntegerRange(t *testing.T) {
	it := IntegerType{Signed: true, Bits: 8, Min: -10, Max: 10}
	ctx := AccessContext{Space: Real}

	if _, err := it.ToBlackboard("-11", ctx); err == nil {
		t.Error(`ToBlackboard("-11") succeeded; want OutOfRange`)
	}
	if _, err := it.ToBlackboard("0x80", ctx); err == nil {
		t.Error(`ToBlackboard("0x80") succeeded; want OutOfRange (sign-extends to -128)`)
	}
	word, err := it.ToBlackboard("10", ctx)
	if err != nil {
		t.Fatalf(`ToBlackboard("10") failed: %v`, err)
	}
	if word != 0x0A {
		t.Errorf(`ToBlackboard("10") = 0x%x; want 0x0a`, word)
	}
}

func TestIntegerHexSignExtends(t *testing.T) {
	it := IntegerType{Signed: true, Bits: 8, Min: -128, Max: 127}
	word, err := it.ToBlackboard("0xFF", AccessContext{Space: Real})
	if err != nil {
		t.Fatalf("ToBlackboard failed: %v", err)
	}
	v, err := it.FromBlackboardInt(word)
	if err != nil {
		t.Fatalf("FromBlackboardInt failed: %v", err)
	}
	if v != -1 {
		t.Errorf("0xFF into 8-bit signed = %d; want -1", v)
	}
}

// TestFixedPointQ015 covers spec.md §8 scenario 2.
func TestFixedPointQ015(t *testing.T) {
	ft := FixedPointType{I: 0, F: 15, Bytes: 2}

	word, err := ft.ToBlackboard("0.5", AccessContext{Space: Real})
	if err != nil {
		t.Fatalf(`ToBlackboard("0.5") failed: %v`, err)
	}
	if word != 0x4000 {
		t.Errorf(`ToBlackboard("0.5") = 0x%x; want 0x4000`, word)
	}

	real, err := ft.FromBlackboard(word, AccessContext{Space: Real})
	if err != nil {
		t.Fatalf("FromBlackboard (real) failed: %v", err)
	}
	if real != "0.5" {
		t.Errorf("FromBlackboard (real) = %q; want \"0.5\"", real)
	}

	hex, err := ft.FromBlackboard(word, AccessContext{Space: Raw, RawFormat: Hex})
	if err != nil {
		t.Fatalf("FromBlackboard (raw hex) failed: %v", err)
	}
	if hex != "0x4000" {
		t.Errorf("FromBlackboard (raw hex) = %q; want \"0x4000\"", hex)
	}
}

func TestFixedPointRangeBoundary(t *testing.T) {
	ft := FixedPointType{I: 0, F: 15, Bytes: 2}
	// [-2^15/2^15, (2^15-1)/2^15] = [-1, 0.999969...]
	if _, err := ft.ToBlackboard("-1", AccessContext{Space: Real}); err != nil {
		t.Errorf("ToBlackboard(-1) failed: %v", err)
	}
	if _, err := ft.ToBlackboard("-1.1", AccessContext{Space: Real}); err == nil {
		t.Error("ToBlackboard(-1.1) succeeded; want OutOfRange")
	}
	if _, err := ft.ToBlackboard("0xAB", AccessContext{Space: Real}); err == nil {
		t.Error("hex literal accepted in real space; want error")
	}
}

func TestFloat32RejectsNaNAndInf(t *testing.T) {
	ft := Float32Type{Min: -1e30, Max: 1e30}
	for _, s := range []string{"NaN", "Inf", "-Inf"} {
		if _, err := ft.ToBlackboard(s, AccessContext{Space: Real}); err == nil {
			t.Errorf("ToBlackboard(%q) succeeded; want rejection", s)
		}
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	ft := Float32Type{Min: -1e30, Max: 1e30}
	word, err := ft.ToBlackboard("3.5", AccessContext{Space: Real})
	if err != nil {
		t.Fatalf("ToBlackboard failed: %v", err)
	}
	got, err := ft.FromBlackboardFloat(word)
	if err != nil {
		t.Fatalf("FromBlackboardFloat failed: %v", err)
	}
	if got != 3.5 {
		t.Errorf("round trip = %v; want 3.5", got)
	}
}

func TestEnumRoundTrip(t *testing.T) {
	et, err := NewEnumType(1, []EnumPair{{"Off", 0}, {"On", 1}, {"Auto", 2}})
	if err != nil {
		t.Fatalf("NewEnumType failed: %v", err)
	}
	word, err := et.ToBlackboard("On", AccessContext{Space: Real})
	if err != nil {
		t.Fatalf("ToBlackboard failed: %v", err)
	}
	lit, err := et.FromBlackboard(word, AccessContext{Space: Real})
	if err != nil {
		t.Fatalf("FromBlackboard failed: %v", err)
	}
	if lit != "On" {
		t.Errorf("FromBlackboard = %q; want \"On\"", lit)
	}
}

func TestEnumDuplicateRejected(t *testing.T) {
	if _, err := NewEnumType(1, []EnumPair{{"A", 1}, {"B", 1}}); err == nil {
		t.Error("NewEnumType with duplicate numeric succeeded; want error")
	}
	if _, err := NewEnumType(1, []EnumPair{{"A", 1}, {"A", 2}}); err == nil {
		t.Error("NewEnumType with duplicate literal succeeded; want error")
	}
}

func TestBitBlockSetPreservesSiblings(t *testing.T) {
	bt, err := NewBitBlockType(1, []BitField{
		{Name: "lo", Pos: 0, Width: 4, Signed: false},
		{Name: "hi", Pos: 4, Width: 4, Signed: false},
	})
	if err != nil {
		t.Fatalf("NewBitBlockType failed: %v", err)
	}
	lo, _ := bt.Field("lo")
	hi, _ := bt.Field("hi")

	word, err := bt.Set(0, lo, 0xA)
	if err != nil {
		t.Fatalf("Set(lo) failed: %v", err)
	}
	word, err = bt.Set(word, hi, 0x5)
	if err != nil {
		t.Fatalf("Set(hi) failed: %v", err)
	}
	if word != 0x5A {
		t.Errorf("word = 0x%x; want 0x5a", word)
	}
	if got := bt.Extract(word, lo); got != 0xA {
		t.Errorf("Extract(lo) = 0x%x; want 0xa", got)
	}
}

func TestBitBlockOverlapRejected(t *testing.T) {
	_, err := NewBitBlockType(1, []BitField{
		{Name: "a", Pos: 0, Width: 4},
		{Name: "b", Pos: 2, Width: 4},
	})
	if err == nil {
		t.Error("NewBitBlockType with overlapping fields succeeded; want error")
	}
}

func TestBoolLiteralForms(t *testing.T) {
	bt := BoolType{}
	for _, s := range []string{"1", "true", "0x1"} {
		word, err := bt.ToBlackboard(s, AccessContext{Space: Real})
		if err != nil || word != 1 {
			t.Errorf("ToBlackboard(%q) = (%d, %v); want (1, nil)", s, word, err)
		}
	}
	for _, s := range []string{"0", "false", "0x0"} {
		word, err := bt.ToBlackboard(s, AccessContext{Space: Real})
		if err != nil || word != 0 {
			t.Errorf("ToBlackboard(%q) = (%d, %v); want (0, nil)", s, word, err)
		}
	}
}
