// Package syncer implements the deduplicated syncer set that pushes/pulls
// blackboard regions to/from subsystem back-ends (spec.md §4.E).
package syncer

import (
	"context"

	"pfw/blackboard"
)

// Syncer copies a contiguous blackboard region [Offset, Offset+Size) to
// (backward=false) or from (backward=true) a subsystem back-end. Concrete
// syncers performing physical HW I/O are out of this package's scope
// (spec.md §1); Syncer is only the interface the framework schedules
// against.
type Syncer interface {
	// Sync pushes (or, if backward, pulls) the blackboard region this
	// syncer covers.
	Sync(ctx context.Context, bb *blackboard.Blackboard, backward bool) error
	// Region returns the contiguous blackboard byte range this syncer
	// covers.
	Region() (offset, size int)
}

// Set is a deduplicated, insertion-ordered collection of syncer
// references. The framework guarantees a given syncer is invoked at most
// once per apply cycle by routing every domain's syncers through one Set
// per cycle (spec.md §4.E, §4.K).
type Set struct {
	members []Syncer
	seen    map[Syncer]bool
}

// NewSet returns an empty syncer set.
func NewSet() *Set {
	return &Set{seen: make(map[Syncer]bool)}
}

// Add inserts s if not already present.
func (set *Set) Add(s Syncer) {
	if s == nil || set.seen[s] {
		return
	}
	set.seen[s] = true
	set.members = append(set.members, s)
}

// AddAll inserts every member of other not already present.
func (set *Set) AddAll(other *Set) {
	if other == nil {
		return
	}
	for _, s := range other.members {
		set.Add(s)
	}
}

// Clear empties the set.
func (set *Set) Clear() {
	set.members = nil
	set.seen = make(map[Syncer]bool)
}

// Len returns the number of distinct syncers in the set.
func (set *Set) Len() int { return len(set.members) }

// SyncError aggregates one failing syncer's error without stopping the rest
// of the batch from running (spec.md §4.E: "on the first failure it
// aggregates the error and continues").
type SyncError struct {
	Offset int
	Size   int
	Err    error
}

// Sync iterates members in insertion (deterministic) order, pushing
// (backward=false) or pulling (backward=true) the blackboard. A failing
// syncer does not stop the batch; every failure is collected and returned
// together so a partial sync completes as much as possible.
func (set *Set) Sync(ctx context.Context, bb *blackboard.Blackboard, backward bool) []SyncError {
	var errs []SyncError
	for _, s := range set.members {
		if err := s.Sync(ctx, bb, backward); err != nil {
			o, sz := s.Region()
			errs = append(errs, SyncError{Offset: o, Size: sz, Err: err})
		}
	}
	return errs
}
