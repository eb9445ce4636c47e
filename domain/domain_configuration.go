package domain

import (
	"context"

	"pfw/blackboard"
	"pfw/element"
	"pfw/internal/pferrors"
	"pfw/rule"
	"pfw/syncer"
)

// DomainConfiguration is a named set of AreaConfigurations plus an
// optional applicability rule (spec.md §4.G).
type DomainConfiguration struct {
	Name string
	Rule rule.Rule

	areas    map[element.ID]*AreaConfiguration
	areaList []element.ID
}

// NewDomainConfiguration creates an empty configuration named name.
func NewDomainConfiguration(name string) *DomainConfiguration {
	return &DomainConfiguration{Name: name, areas: make(map[element.ID]*AreaConfiguration)}
}

// addArea appends a fresh invalid area for elem, preserving insertion
// order in area_list.
func (dc *DomainConfiguration) addArea(elem element.ID, footprint int) *AreaConfiguration {
	a := NewAreaConfiguration(elem, footprint)
	dc.areas[elem] = a
	dc.areaList = append(dc.areaList, elem)
	return a
}

// removeArea drops elem's area, if any.
func (dc *DomainConfiguration) removeArea(elem element.ID) {
	delete(dc.areas, elem)
	for i, id := range dc.areaList {
		if id == elem {
			dc.areaList = append(dc.areaList[:i], dc.areaList[i+1:]...)
			break
		}
	}
}

// Area returns the area covering elem, if this configuration has one.
func (dc *DomainConfiguration) Area(elem element.ID) (*AreaConfiguration, bool) {
	a, ok := dc.areas[elem]
	return a, ok
}

// Save saves every area configuration from the blackboard.
func (dc *DomainConfiguration) Save(bb *blackboard.Blackboard, tree *element.Tree) error {
	for _, id := range dc.areaList {
		if err := dc.areas[id].Save(bb, tree); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates every area configuration against the blackboard.
func (dc *DomainConfiguration) Validate(bb *blackboard.Blackboard, tree *element.Tree) error {
	for _, id := range dc.areaList {
		if err := dc.areas[id].Validate(bb, tree); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAgainst validates every area configuration against the
// matching area of other.
func (dc *DomainConfiguration) ValidateAgainst(other *DomainConfiguration) error {
	for _, id := range dc.areaList {
		otherArea, ok := other.areas[id]
		if !ok {
			return pferrors.ForKind(pferrors.InvariantViolation, "configuration %q has no area for element %d", other.Name, id)
		}
		if err := dc.areas[id].ValidateAgainst(otherArea); err != nil {
			return err
		}
	}
	return nil
}

// Restore restores every area configuration into the blackboard, then
// either syncs immediately (sequence-aware) or appends domainSyncSet to
// outSyncSet for a later batch (sequence-unaware) — spec.md §4.G
// "Restore contract".
func (dc *DomainConfiguration) Restore(ctx context.Context, bb *blackboard.Blackboard, tree *element.Tree,
	sequenceAware bool, domainSyncSet *syncer.Set, outSyncSet *syncer.Set) []error {
	for _, id := range dc.areaList {
		if err := dc.areas[id].Restore(bb, tree); err != nil {
			return []error{err}
		}
	}
	if sequenceAware {
		if errs := domainSyncSet.Sync(ctx, bb, false); len(errs) > 0 {
			out := make([]error, len(errs))
			for i, e := range errs {
				out[i] = e.Err
			}
			return out
		}
		return nil
	}
	outSyncSet.AddAll(domainSyncSet)
	return nil
}

// IsApplicable implements spec.md §4.G: a rule is present and evaluates
// true.
func (dc *DomainConfiguration) IsApplicable() (bool, error) {
	if dc.Rule == nil {
		return false, nil
	}
	return dc.Rule.Matches()
}

// merge absorbs fromElem's area into toElem's area (inner copy) and
// drops fromElem's own area, used when a newly-associated ancestor
// element swallows an already-associated descendant (spec.md §4.H).
func (dc *DomainConfiguration) merge(toElem, fromElem element.ID, tree *element.Tree) error {
	toArea, ok := dc.areas[toElem]
	if !ok {
		return pferrors.ForKind(pferrors.InvariantViolation, "configuration %q has no area for element %d", dc.Name, toElem)
	}
	fromArea, ok := dc.areas[fromElem]
	if !ok {
		return pferrors.ForKind(pferrors.InvariantViolation, "configuration %q has no area for element %d", dc.Name, fromElem)
	}
	if err := toArea.CopyFromInner(fromArea, tree); err != nil {
		return err
	}
	dc.removeArea(fromElem)
	return nil
}

// split replaces fromElem's area with one area per child, each
// initialized from fromElem's bytes (spec.md §4.H "Splitting an
// element").
func (dc *DomainConfiguration) split(fromElem element.ID, tree *element.Tree) error {
	orig, ok := dc.areas[fromElem]
	if !ok {
		return pferrors.ForKind(pferrors.InvariantViolation, "configuration %q has no area for element %d", dc.Name, fromElem)
	}
	n, err := tree.Node(fromElem)
	if err != nil {
		return err
	}
	pos := -1
	for i, id := range dc.areaList {
		if id == fromElem {
			pos = i
			break
		}
	}
	var newAreas []*AreaConfiguration
	for _, childID := range n.Children {
		childNode, err := tree.Node(childID)
		if err != nil {
			return err
		}
		child := NewAreaConfiguration(childID, childNode.Footprint)
		if err := orig.CopyToInner(child, tree); err != nil {
			return err
		}
		newAreas = append(newAreas, child)
	}
	delete(dc.areas, fromElem)
	newIDs := make([]element.ID, 0, len(newAreas))
	for _, a := range newAreas {
		dc.areas[a.elem] = a
		newIDs = append(newIDs, a.elem)
	}
	rest := append([]element.ID{}, dc.areaList[pos+1:]...)
	dc.areaList = append(append(dc.areaList[:pos], newIDs...), rest...)
	return nil
}

// SetElementSequence reorders area_list to match paths; every
// currently-associated element must be listed exactly once (spec.md
// §4.G).
func (dc *DomainConfiguration) SetElementSequence(tree *element.Tree, paths []string) error {
	newList := make([]element.ID, 0, len(paths))
	seen := make(map[element.ID]bool, len(paths))
	for _, p := range paths {
		r, err := tree.Resolve(element.ParsePath(p))
		if err != nil {
			return err
		}
		if _, ok := dc.areas[r.ID]; !ok {
			return pferrors.ForKind(pferrors.InvariantViolation, "element %q is not associated to configuration %q", p, dc.Name)
		}
		if seen[r.ID] {
			return pferrors.ForKind(pferrors.InvariantViolation, "element %q listed twice in sequence", p)
		}
		seen[r.ID] = true
		newList = append(newList, r.ID)
	}
	if len(newList) != len(dc.areaList) {
		return pferrors.ForKind(pferrors.InvariantViolation,
			"element sequence must list every associated element exactly once (%d given, %d expected)", len(newList), len(dc.areaList))
	}
	dc.areaList = newList
	return nil
}

// Elements returns the configuration's associated elements in area_list
// order.
func (dc *DomainConfiguration) Elements() []element.ID {
	out := make([]element.ID, len(dc.areaList))
	copy(out, dc.areaList)
	return out
}
