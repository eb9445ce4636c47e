package domain

import (
	"bytes"
	"testing"

	"pfw/blackboard"
	"pfw/element"
	"pfw/types"
)

func buildAreaTree(t *testing.T) (*element.Tree, element.ID, element.ID, element.ID) {
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
		t.Fatalf("Freeze: %v", err)
	}
	return tree, root, gain, levels
}

func TestAreaSaveRestoreRoundTrip(t *testing.T) {
	tree, root, _, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	bb := blackboard.New(16)
	if err := bb.RawWrite([]byte{7, 1, 2, 3, 4}, 0); err != nil {
		t.Fatal(err)
	}

	a := NewAreaConfiguration(root, rootNode.Footprint)
	if a.Valid() {
		t.Fatal("fresh area: want invalid")
	}
	if err := a.Save(bb, tree); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !a.Valid() {
		t.Fatal("after Save: want valid")
	}
	if !bytes.Equal(a.Bytes(), []byte{7, 1, 2, 3, 4}) {
		t.Errorf("Bytes = %v; want [7 1 2 3 4]", a.Bytes())
	}

	bb2 := blackboard.New(16)
	if err := a.Restore(bb2, tree); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	var got [5]byte
	if err := bb2.RawRead(got[:], 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[:], []byte{7, 1, 2, 3, 4}) {
		t.Errorf("restored bytes = %v; want [7 1 2 3 4]", got)
	}
}

func TestAreaRestoreInvalidRejected(t *testing.T) {
	tree, root, _, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	a := NewAreaConfiguration(root, rootNode.Footprint)
	bb := blackboard.New(16)
	if err := a.Restore(bb, tree); err == nil {
		t.Fatal("Restore on invalid area: want error, got nil")
	}
}

func TestAreaValidateIsNoOpWhenValid(t *testing.T) {
	tree, root, _, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	bb := blackboard.New(16)
	a := NewAreaConfiguration(root, rootNode.Footprint)
	if err := a.Save(bb, tree); err != nil {
		t.Fatal(err)
	}
	copy(a.Bytes(), []byte{9, 9, 9, 9, 9})

	if err := bb.RawWrite([]byte{0, 0, 0, 0, 0}, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Validate(bb, tree); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !bytes.Equal(a.Bytes(), []byte{9, 9, 9, 9, 9}) {
		t.Errorf("Validate on already-valid area overwrote bytes: got %v", a.Bytes())
	}
}

func TestAreaValidateAgainst(t *testing.T) {
	tree, root, _, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	src := NewAreaConfiguration(root, rootNode.Footprint)
	bb := blackboard.New(16)
	if err := bb.RawWrite([]byte{1, 2, 3, 4, 5}, 0); err != nil {
		t.Fatal(err)
	}
	if err := src.Save(bb, tree); err != nil {
		t.Fatal(err)
	}

	dst := NewAreaConfiguration(root, rootNode.Footprint)
	if err := dst.ValidateAgainst(src); err != nil {
		t.Fatalf("ValidateAgainst: %v", err)
	}
	if !dst.Valid() || !bytes.Equal(dst.Bytes(), src.Bytes()) {
		t.Errorf("ValidateAgainst did not copy source bytes")
	}
}

func TestAreaValidateAgainstRejectsInvalidSource(t *testing.T) {
	tree, root, _, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	src := NewAreaConfiguration(root, rootNode.Footprint)
	dst := NewAreaConfiguration(root, rootNode.Footprint)
	if err := dst.ValidateAgainst(src); err == nil {
		t.Fatal("ValidateAgainst with invalid source: want error, got nil")
	}
}

func TestAreaValidateAgainstRejectsElementMismatch(t *testing.T) {
	tree, root, gain, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	gainNode, _ := tree.Node(gain)
	bb := blackboard.New(16)

	src := NewAreaConfiguration(gain, gainNode.Footprint)
	if err := src.Save(bb, tree); err != nil {
		t.Fatal(err)
	}
	dst := NewAreaConfiguration(root, rootNode.Footprint)
	if err := dst.ValidateAgainst(src); err == nil {
		t.Fatal("ValidateAgainst with mismatched element: want error, got nil")
	}
}

func TestAreaCopyFromToInner(t *testing.T) {
	tree, root, gain, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	gainNode, _ := tree.Node(gain)
	bb := blackboard.New(16)
	if err := bb.RawWrite([]byte{42}, gainNode.Offset); err != nil {
		t.Fatal(err)
	}

	outer := NewAreaConfiguration(root, rootNode.Footprint)
	if err := outer.Save(bb, tree); err != nil {
		t.Fatal(err)
	}

	inner := NewAreaConfiguration(gain, gainNode.Footprint)
	if err := outer.CopyToInner(inner, tree); err != nil {
		t.Fatalf("CopyToInner: %v", err)
	}
	if !inner.Valid() || inner.Bytes()[0] != 42 {
		t.Errorf("CopyToInner: inner = %v, valid=%v; want [42], true", inner.Bytes(), inner.Valid())
	}

	inner.Bytes()[0] = 7
	if err := outer.CopyFromInner(inner, tree); err != nil {
		t.Fatalf("CopyFromInner: %v", err)
	}
	if outer.Bytes()[gainNode.Offset-rootNode.Offset] != 7 {
		t.Errorf("CopyFromInner did not update outer bytes at gain's relative offset")
	}
}

func TestAreaCopyRejectsNonDescendant(t *testing.T) {
	tree, root, gain, levels := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	levelsNode, _ := tree.Node(levels)
	gainNode, _ := tree.Node(gain)

	gainArea := NewAreaConfiguration(gain, gainNode.Footprint)
	levelsArea := NewAreaConfiguration(levels, levelsNode.Footprint)
	_ = rootNode
	if err := gainArea.CopyFromInner(levelsArea, tree); err == nil {
		t.Fatal("CopyFromInner with a sibling, not a descendant: want error, got nil")
	}
}

func TestAreaSerializeRoundTrip(t *testing.T) {
	tree, root, _, _ := buildAreaTree(t)
	rootNode, _ := tree.Node(root)
	a := NewAreaConfiguration(root, rootNode.Footprint)
	copy(a.Bytes(), []byte{1, 2, 3, 4, 5})

	var buf bytes.Buffer
	if err := a.Serialize(&buf, true); err != nil {
		t.Fatalf("Serialize out: %v", err)
	}

	b := NewAreaConfiguration(root, rootNode.Footprint)
	if err := b.Serialize(&buf, false); err != nil {
		t.Fatalf("Serialize in: %v", err)
	}
	if !b.Valid() || !bytes.Equal(b.Bytes(), a.Bytes()) {
		t.Errorf("round trip: got %v, valid=%v; want %v, true", b.Bytes(), b.Valid(), a.Bytes())
	}
}
