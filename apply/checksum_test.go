package apply

import (
	"testing"

	"pfw/criterion"
	"pfw/domain"
)

func TestStructureChecksumDeterministic(t *testing.T) {
	d := domain.NewConfigurableDomain("Dom", true)
	c, err := criterion.New("Mode", criterion.Exclusive, []criterion.ValuePair{{0, "Idle"}, {1, "Active"}})
	if err != nil {
		t.Fatal(err)
	}
	domains := []*domain.ConfigurableDomain{d}
	criteria := []*criterion.Criterion{c}

	a := StructureChecksum("System", domains, criteria)
	b := StructureChecksum("System", domains, criteria)
	if a != b {
		t.Errorf("StructureChecksum not deterministic: %d != %d", a, b)
	}
}

func TestStructureChecksumSensitiveToDomainName(t *testing.T) {
	d1 := domain.NewConfigurableDomain("Dom1", true)
	d2 := domain.NewConfigurableDomain("Dom2", true)
	a := StructureChecksum("System", []*domain.ConfigurableDomain{d1}, nil)
	b := StructureChecksum("System", []*domain.ConfigurableDomain{d2}, nil)
	if a == b {
		t.Error("StructureChecksum should differ when a domain's name differs")
	}
}

func TestStructureChecksumSensitiveToSequenceAwareFlag(t *testing.T) {
	d1 := domain.NewConfigurableDomain("Dom", true)
	d2 := domain.NewConfigurableDomain("Dom", false)
	a := StructureChecksum("System", []*domain.ConfigurableDomain{d1}, nil)
	b := StructureChecksum("System", []*domain.ConfigurableDomain{d2}, nil)
	if a == b {
		t.Error("StructureChecksum should differ when sequence-aware flag differs")
	}
}

func TestStructureChecksumSensitiveToCriterionValueSet(t *testing.T) {
	c1, err := criterion.New("Mode", criterion.Exclusive, []criterion.ValuePair{{0, "Idle"}, {1, "Active"}})
	if err != nil {
		t.Fatal(err)
	}
	c2, err := criterion.New("Mode", criterion.Exclusive, []criterion.ValuePair{{0, "Idle"}, {1, "Busy"}})
	if err != nil {
		t.Fatal(err)
	}
	a := StructureChecksum("System", nil, []*criterion.Criterion{c1})
	b := StructureChecksum("System", nil, []*criterion.Criterion{c2})
	if a == b {
		t.Error("StructureChecksum should differ when a criterion's value-set literal differs")
	}
}

func TestStructureChecksumSensitiveToSystemClassName(t *testing.T) {
	a := StructureChecksum("SystemA", nil, nil)
	b := StructureChecksum("SystemB", nil, nil)
	if a == b {
		t.Error("StructureChecksum should differ when the system class name differs")
	}
}

func TestCombineChecksumWraps(t *testing.T) {
	// 250 + 10 + 10 = 270, which wraps to 14 mod 256.
	if got := combineChecksum(250, []byte{10, 10}); got != 14 {
		t.Errorf("combineChecksum(250, {10,10}) = %d; want 14", got)
	}
}
