// Package subsystem provides concrete syncer.Syncer back-ends. FileSyncer
// is the one reference implementation the framework ships, an analogue of
// original_source/test/test-subsystem's file-backed TESTSubsystemObject
// and original_source/skeleton-subsystem's minimal CSkeletonSubsystemObject
// (spec.md §1 "concrete subsystem back-ends are out of scope" — this one
// exists for tests and as a worked example, not as schema).
package subsystem

import (
	"context"
	"os"

	"golang.org/x/sys/unix"

	"pfw/blackboard"
	"pfw/internal/pferrors"
)

// FileSyncer pushes/pulls one contiguous blackboard region to/from a
// fixed byte range of an open file, using positioned I/O (pread/pwrite)
// instead of seek-then-read/write. The original's TESTSubsystemObject
// opens and closes the backing file on every sync and always starts at
// its beginning; FileSyncer instead keeps one fd open across syncs and
// addresses its own file range directly, so several FileSyncers sharing
// one file never perturb each other's position.
type FileSyncer struct {
	file       *os.File
	fileOffset int64
	bbOffset   int
	size       int
}

// NewFileSyncer opens (creating if necessary) path and returns a syncer
// covering the blackboard region [bbOffset, bbOffset+size) against the
// file region starting at fileOffset.
func NewFileSyncer(path string, fileOffset int64, bbOffset, size int) (*FileSyncer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, pferrors.Wrapf(err, "opening syncer file %q", path)
	}
	return &FileSyncer{file: f, fileOffset: fileOffset, bbOffset: bbOffset, size: size}, nil
}

// Close closes the underlying file.
func (s *FileSyncer) Close() error { return s.file.Close() }

// Region implements syncer.Syncer.
func (s *FileSyncer) Region() (offset, size int) { return s.bbOffset, s.size }

// Sync implements syncer.Syncer.
func (s *FileSyncer) Sync(ctx context.Context, bb *blackboard.Blackboard, backward bool) error {
	buf := make([]byte, s.size)
	if backward {
		n, err := unix.Pread(int(s.file.Fd()), buf, s.fileOffset)
		if err != nil {
			return pferrors.Wrap(err, "pread from syncer file")
		}
		// A short or never-written region reads back as zero, the same
		// way an untouched hardware register would.
		for i := n; i < s.size; i++ {
			buf[i] = 0
		}
		return bb.RawWrite(buf, s.bbOffset)
	}
	if err := bb.RawRead(buf, s.bbOffset); err != nil {
		return err
	}
	if _, err := unix.Pwrite(int(s.file.Fd()), buf, s.fileOffset); err != nil {
		return pferrors.Wrap(err, "pwrite to syncer file")
	}
	return nil
}
