package apply

import (
	"context"

	"pfw/blackboard"
	"pfw/element"
	"pfw/syncer"
)

// BackSynchronizer reads current hardware state into the blackboard
// during initial bring-up (spec.md §4.K "Initial bring-up"), a direct
// analogue of HardwareBackSynchronizer.cpp: it fills a syncer set from
// the whole tree once, up front, and replays it backward on Sync.
type BackSynchronizer struct {
	bb  *blackboard.Blackboard
	set *syncer.Set
}

// NewBackSynchronizer collects every syncer reachable from the tree's
// root into a single set, deduplicated the same way an apply cycle's
// batch set is.
func NewBackSynchronizer(tree *element.Tree, bb *blackboard.Blackboard) (*BackSynchronizer, error) {
	set := syncer.NewSet()
	if err := tree.FillSyncerSetFromDescendant(tree.Root(), set); err != nil {
		return nil, err
	}
	return &BackSynchronizer{bb: bb, set: set}, nil
}

// Sync pulls hardware state into the blackboard (backward=true),
// returning every syncer's failure without letting one stop the rest.
func (s *BackSynchronizer) Sync(ctx context.Context) []syncer.SyncError {
	return s.set.Sync(ctx, s.bb, true)
}
