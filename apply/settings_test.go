package apply

import (
	"bytes"
	"testing"

	"pfw/blackboard"
	"pfw/criterion"
	"pfw/domain"
	"pfw/element"
	"pfw/types"
)

func buildSettingsFixture(t *testing.T) ([]*domain.ConfigurableDomain, []*criterion.Criterion) {
	t.Helper()
	tree := element.NewTree()
	root := tree.CreateBlock("Root")
	gain := tree.CreateScalar("Gain", types.IntegerType{Signed: true, Bits: 8, Min: -10, Max: 10})
	levels := tree.CreateArray("Levels", types.IntegerType{Signed: false, Bits: 8, Min: 0, Max: 255}, 4)
	if err := tree.AddChild(root, gain); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddChild(root, levels); err != nil {
		t.Fatal(err)
	}
	if err := tree.Freeze(); err != nil {
		t.Fatal(err)
	}

	bb := blackboard.New(16)
	d := domain.NewConfigurableDomain("Dom", true)
	if err := d.AddElement(gain, tree); err != nil {
		t.Fatal(err)
	}
	if err := d.AddElement(levels, tree); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateConfiguration("Cfg", bb, tree); err != nil {
		t.Fatal(err)
	}

	c, err := criterion.New("Mode", criterion.Exclusive, []criterion.ValuePair{{0, "Idle"}})
	if err != nil {
		t.Fatal(err)
	}
	return []*domain.ConfigurableDomain{d}, []*criterion.Criterion{c}
}

func TestExportImportSettingsRoundTrip(t *testing.T) {
	domains, criteria := buildSettingsFixture(t)

	var buf bytes.Buffer
	if err := ExportSettings("System", domains, criteria, &buf); err != nil {
		t.Fatalf("ExportSettings: %v", err)
	}
	// Data (Gain:1 + Levels:4) + one checksum byte.
	if buf.Len() != 6 {
		t.Fatalf("exported settings length = %d; want 6", buf.Len())
	}
	if err := ImportSettings("System", domains, criteria, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("ImportSettings: %v", err)
	}
}

func TestImportSettingsRejectsSizeMismatch(t *testing.T) {
	domains, criteria := buildSettingsFixture(t)
	var buf bytes.Buffer
	if err := ExportSettings("System", domains, criteria, &buf); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]
	if err := ImportSettings("System", domains, criteria, bytes.NewReader(truncated)); err == nil {
		t.Fatal("ImportSettings on truncated data: want error, got nil")
	}
}

func TestImportSettingsRejectsChecksumMismatch(t *testing.T) {
	domains, criteria := buildSettingsFixture(t)
	var buf bytes.Buffer
	if err := ExportSettings("System", domains, criteria, &buf); err != nil {
		t.Fatal(err)
	}
	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[0] ^= 0xFF
	if err := ImportSettings("System", domains, criteria, bytes.NewReader(corrupt)); err == nil {
		t.Fatal("ImportSettings with a flipped data byte: want checksum error, got nil")
	}
}

func TestImportSettingsRejectsEmptyFile(t *testing.T) {
	domains, criteria := buildSettingsFixture(t)
	if err := ImportSettings("System", domains, criteria, bytes.NewReader(nil)); err == nil {
		t.Fatal("ImportSettings on empty input: want error, got nil")
	}
}
