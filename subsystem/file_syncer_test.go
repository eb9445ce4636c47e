package subsystem

import (
	"context"
	"path/filepath"
	"testing"

	"pfw/blackboard"
)

func TestFileSyncerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg")
	s, err := NewFileSyncer(path, 0, 2, 4)
	if err != nil {
		t.Fatalf("NewFileSyncer: %v", err)
	}
	defer s.Close()

	bb := blackboard.New(8)
	if err := bb.RawWrite([]byte{1, 2, 3, 4}, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Sync(context.Background(), bb, false); err != nil {
		t.Fatalf("Sync forward: %v", err)
	}

	bb2 := blackboard.New(8)
	if err := s.Sync(context.Background(), bb2, true); err != nil {
		t.Fatalf("Sync backward: %v", err)
	}
	got := make([]byte, 4)
	if err := bb2.RawRead(got, 2); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d; want %d", i, got[i], want[i])
		}
	}
}

func TestFileSyncerBackwardOnUnwrittenFileReadsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg")
	s, err := NewFileSyncer(path, 0, 0, 4)
	if err != nil {
		t.Fatalf("NewFileSyncer: %v", err)
	}
	defer s.Close()

	bb := blackboard.New(4)
	if err := bb.RawWrite([]byte{9, 9, 9, 9}, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Sync(context.Background(), bb, true); err != nil {
		t.Fatalf("Sync backward on empty file: %v", err)
	}
	got := bb.Bytes()
	for i, b := range got {
		if b != 0 {
			t.Errorf("got[%d] = %d; want 0 (untouched region reads as zero)", i, b)
		}
	}
}

func TestFileSyncerRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg")
	s, err := NewFileSyncer(path, 10, 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	offset, size := s.Region()
	if offset != 5 || size != 3 {
		t.Errorf("Region() = (%d, %d); want (5, 3)", offset, size)
	}
}

func TestFileSyncersShareOneFileAtDistinctOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared")
	a, err := NewFileSyncer(path, 0, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewFileSyncer(path, 2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	bb := blackboard.New(4)
	if err := bb.RawWrite([]byte{1, 2}, 0); err != nil {
		t.Fatal(err)
	}
	if err := bb.RawWrite([]byte{3, 4}, 2); err != nil {
		t.Fatal(err)
	}
	if err := a.Sync(context.Background(), bb, false); err != nil {
		t.Fatal(err)
	}
	if err := b.Sync(context.Background(), bb, false); err != nil {
		t.Fatal(err)
	}

	bb2 := blackboard.New(4)
	if err := a.Sync(context.Background(), bb2, true); err != nil {
		t.Fatal(err)
	}
	if err := b.Sync(context.Background(), bb2, true); err != nil {
		t.Fatal(err)
	}
	got := bb2.Bytes()
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d; want %d (each syncer at its own file offset)", i, got[i], want[i])
		}
	}
}
