package blackboard

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadWriteLittleEndian(t *testing.T) {
	bb := New(8)
	if err := bb.Write(0x1234, 2, 2, false); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	want := []byte{0x00, 0x00, 0x34, 0x12, 0x00, 0x00, 0x00, 0x00}
	if diff := cmp.Diff(want, bb.Bytes()); diff != "" {
		t.Errorf("bytes mismatch (-want +got):\n%s", diff)
	}
	got, err := bb.Read(2, 2, false)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if got != 0x1234 {
		t.Errorf("Read() = 0x%x; want 0x1234", got)
	}
}

func TestReadWriteBigEndian(t *testing.T) {
	bb := New(4)
	if err := bb.Write(0x1234, 0, 2, true); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	want := []byte{0x12, 0x34, 0x00, 0x00}
	if !bytes.Equal(bb.Bytes()[:2], want[:2]) {
		t.Errorf("big-endian bytes = %v; want %v", bb.Bytes()[:2], want[:2])
	}
	got, err := bb.Read(0, 2, true)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if got != 0x1234 {
		t.Errorf("Read() = 0x%x; want 0x1234", got)
	}
}

func TestBoundsChecked(t *testing.T) {
	bb := New(4)
	if _, err := bb.Read(3, 4, false); err == nil {
		t.Error("Read() out of bounds succeeded; want error")
	}
	if err := bb.Write(0, -1, 2, false); err == nil {
		t.Error("Write() with negative offset succeeded; want error")
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	bb := New(4)
	bb.RawWrite([]byte{1, 2, 3, 4}, 0)

	saved := make([]byte, 4)
	if err := bb.SaveTo(saved, 0); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	bb.RawWrite([]byte{0xff, 0xff, 0xff, 0xff}, 0)

	if err := bb.RestoreFrom(saved, 0); err != nil {
		t.Fatalf("RestoreFrom() failed: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, bb.Bytes()); diff != "" {
		t.Errorf("restored bytes mismatch (-want +got):\n%s", diff)
	}
}
