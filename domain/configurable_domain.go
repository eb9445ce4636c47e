package domain

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"pfw/blackboard"
	"pfw/element"
	"pfw/internal/pferrors"
	"pfw/syncer"
)

// ConfigurableDomain owns a set of associated elements and a named list
// of DomainConfigurations, and decides + applies the winning one each
// cycle (spec.md §4.H).
type ConfigurableDomain struct {
	Name           string
	SequenceAware  bool
	LastApplied    string
	LastAppliedAt  *timestamppb.Timestamp

	elements        []element.ID
	elementSyncSets map[element.ID]*syncer.Set
	domainSyncSet   *syncer.Set
	configurations  []*DomainConfiguration
}

// NewConfigurableDomain creates an empty domain.
func NewConfigurableDomain(name string, sequenceAware bool) *ConfigurableDomain {
	return &ConfigurableDomain{
		Name:            name,
		SequenceAware:   sequenceAware,
		elementSyncSets: make(map[element.ID]*syncer.Set),
		domainSyncSet:   syncer.NewSet(),
	}
}

// Elements returns the domain's associated elements, in declaration
// order.
func (d *ConfigurableDomain) Elements() []element.ID {
	out := make([]element.ID, len(d.elements))
	copy(out, d.elements)
	return out
}

// Configurations returns the domain's configurations, in declaration
// order.
func (d *ConfigurableDomain) Configurations() []*DomainConfiguration {
	out := make([]*DomainConfiguration, len(d.configurations))
	copy(out, d.configurations)
	return out
}

func (d *ConfigurableDomain) findConfiguration(name string) (*DomainConfiguration, int) {
	for i, c := range d.configurations {
		if c.Name == name {
			return c, i
		}
	}
	return nil, -1
}

func (d *ConfigurableDomain) isAssociated(id element.ID) bool {
	for _, e := range d.elements {
		if e == id {
			return true
		}
	}
	return false
}

func (d *ConfigurableDomain) recomputeDomainSyncSet() {
	d.domainSyncSet = syncer.NewSet()
	for _, id := range d.elements {
		d.domainSyncSet.AddAll(d.elementSyncSets[id])
	}
}

// AddElement associates id with the domain (spec.md §4.H "Adding an
// element"): rejects an element already associated, rejects one that is
// a transitive descendant of an already-associated element, adds an
// AreaConfiguration for it to every existing configuration, and absorbs
// (merges, then drops) any already-associated descendant of id.
func (d *ConfigurableDomain) AddElement(id element.ID, tree *element.Tree) error {
	if d.isAssociated(id) {
		return pferrors.ForKind(pferrors.InvariantViolation, "element %d is already associated to domain %q", id, d.Name)
	}
	for _, e := range d.elements {
		if tree.IsDescendantOf(id, e) {
			return pferrors.ForKind(pferrors.InvariantViolation,
				"element %d already belongs to domain %q via ancestor %d", id, d.Name, e)
		}
	}

	var absorbed []element.ID
	for _, e := range d.elements {
		if tree.IsDescendantOf(e, id) {
			absorbed = append(absorbed, e)
		}
	}

	n, err := tree.Node(id)
	if err != nil {
		return err
	}
	for _, cfg := range d.configurations {
		cfg.addArea(id, n.Footprint)
	}
	for _, desc := range absorbed {
		for _, cfg := range d.configurations {
			if err := cfg.merge(id, desc, tree); err != nil {
				return err
			}
		}
		d.removeElementBookkeeping(desc)
	}

	set := syncer.NewSet()
	if err := tree.FillSyncerSetFromDescendant(id, set); err != nil {
		return err
	}
	d.elementSyncSets[id] = set
	d.elements = append(d.elements, id)
	d.recomputeDomainSyncSet()
	return nil
}

func (d *ConfigurableDomain) removeElementBookkeeping(id element.ID) {
	for i, e := range d.elements {
		if e == id {
			d.elements = append(d.elements[:i], d.elements[i+1:]...)
			break
		}
	}
	delete(d.elementSyncSets, id)
}

// RemoveElement dissociates id from the domain and every configuration's
// matching area (spec.md §4.H "Removing an element").
func (d *ConfigurableDomain) RemoveElement(id element.ID) error {
	if !d.isAssociated(id) {
		return pferrors.ForKind(pferrors.InvariantViolation, "element %d is not associated to domain %q", id, d.Name)
	}
	for _, cfg := range d.configurations {
		cfg.removeArea(id)
	}
	d.removeElementBookkeeping(id)
	d.recomputeDomainSyncSet()
	return nil
}

// SplitElement replaces id's association with one for each of its
// children, splitting every configuration's area accordingly (spec.md
// §4.H "Splitting an element").
func (d *ConfigurableDomain) SplitElement(id element.ID, tree *element.Tree) error {
	if !d.isAssociated(id) {
		return pferrors.ForKind(pferrors.InvariantViolation, "element %d is not associated to domain %q", id, d.Name)
	}
	n, err := tree.Node(id)
	if err != nil {
		return err
	}
	if len(n.Children) == 0 {
		return pferrors.ForKind(pferrors.InvariantViolation, "element %d has no children to split into", id)
	}
	for _, cfg := range d.configurations {
		if err := cfg.split(id, tree); err != nil {
			return err
		}
	}
	d.removeElementBookkeeping(id)
	for _, childID := range n.Children {
		set := syncer.NewSet()
		if err := tree.FillSyncerSetFromDescendant(childID, set); err != nil {
			return err
		}
		d.elementSyncSets[childID] = set
		d.elements = append(d.elements, childID)
	}
	d.recomputeDomainSyncSet()
	return nil
}

// CreateConfiguration adds a new, empty-valued configuration, attempting
// auto-validation against each existing configuration in turn, falling
// back to the live blackboard when none of them validates it (spec.md §4.H).
func (d *ConfigurableDomain) CreateConfiguration(name string, bb *blackboard.Blackboard, tree *element.Tree) (*DomainConfiguration, error) {
	if _, idx := d.findConfiguration(name); idx >= 0 {
		return nil, pferrors.ForKind(pferrors.InvariantViolation, "configuration %q already exists in domain %q", name, d.Name)
	}
	cfg := NewDomainConfiguration(name)
	for _, id := range d.elements {
		n, err := tree.Node(id)
		if err != nil {
			return nil, err
		}
		cfg.addArea(id, n.Footprint)
	}
	validated := false
	for _, other := range d.configurations {
		if cfg.ValidateAgainst(other) == nil {
			validated = true
			break
		}
	}
	if !validated {
		if err := cfg.Validate(bb, tree); err != nil {
			return nil, err
		}
	}
	d.configurations = append(d.configurations, cfg)
	return cfg, nil
}

// DeleteConfiguration removes name, refusing if it carries a rule
// (spec.md §4.H "explicit safety against accidental loss").
func (d *ConfigurableDomain) DeleteConfiguration(name string) error {
	cfg, idx := d.findConfiguration(name)
	if idx < 0 {
		return pferrors.ForKind(pferrors.PathNotFound, "no configuration %q in domain %q", name, d.Name)
	}
	if cfg.Rule != nil {
		return pferrors.ForKind(pferrors.StateViolation, "configuration %q has a rule; refusing to delete", name)
	}
	d.configurations = append(d.configurations[:idx], d.configurations[idx+1:]...)
	return nil
}

// RenameConfiguration renames oldName to newName.
func (d *ConfigurableDomain) RenameConfiguration(oldName, newName string) error {
	cfg, idx := d.findConfiguration(oldName)
	if idx < 0 {
		return pferrors.ForKind(pferrors.PathNotFound, "no configuration %q in domain %q", oldName, d.Name)
	}
	if _, exists := d.findConfiguration(newName); exists >= 0 {
		return pferrors.ForKind(pferrors.InvariantViolation, "configuration %q already exists in domain %q", newName, d.Name)
	}
	cfg.Name = newName
	return nil
}

// Apply implements spec.md §4.K's per-domain step: find the first
// applicable configuration; if found and (force or it differs from
// LastApplied), restore it and record the apply time.
func (d *ConfigurableDomain) Apply(ctx context.Context, bb *blackboard.Blackboard, tree *element.Tree, outSyncSet *syncer.Set, force bool) error {
	var applicable *DomainConfiguration
	for _, cfg := range d.configurations {
		ok, err := cfg.IsApplicable()
		if err != nil {
			return err
		}
		if ok {
			applicable = cfg
			break
		}
	}
	if applicable == nil {
		return nil
	}
	if !force && applicable.Name == d.LastApplied {
		return nil
	}
	if errs := applicable.Restore(ctx, bb, tree, d.SequenceAware, d.domainSyncSet, outSyncSet); len(errs) > 0 {
		return errs[0]
	}
	d.LastApplied = applicable.Name
	d.LastAppliedAt = timestamppb.New(time.Now())
	return nil
}
