// Package element implements the parameter framework's element tree: the
// hierarchical set of configurable elements (subsystems, components,
// parameter blocks, bit blocks, arrays, scalars), each with an offset and
// footprint in the blackboard (spec.md §3 "Element", §4.C).
//
// Per spec.md §9 ("Pointer graph -> arena + index"), the tree is an arena of
// Nodes indexed by a stable ID rather than a pointer graph with parent/child
// pointers; domains and area configurations reference elements by ID.
package element

import (
	"sort"

	"pfw/internal/pferrors"
	"pfw/syncer"
	"pfw/types"
)

// ID stably identifies a Node within a Tree's arena.
type ID int

// NoParent is the parent ID of the tree's (single) root.
const NoParent ID = -1

// Kind discriminates the element subtypes of spec.md §3.
type Kind int

const (
	KindScalar Kind = iota
	KindArray
	KindBlock
	KindBitBlock
	KindComponent
)

// Node is one element in the tree.
type Node struct {
	ID        ID
	Name      string
	Kind      Kind
	Offset    int
	Footprint int
	Parent    ID
	Children  []ID

	// Scalar/Array payload.
	Type        types.Type
	ArrayLength int

	// BitBlock payload.
	BitBlockType *types.BitBlockType

	// Component/Subsystem payload: mapping metadata (spec.md §4.D) and the
	// per-subsystem endianness flag consulted by blackboard accesses.
	Mapping    map[string]string
	BigEndian  bool

	// ComputedSize payload (supplemental feature #1, grounded on
	// original_source/parameter/ComputedSizeParameter.cpp): the name of
	// the sibling array element whose aggregate footprint this scalar
	// reports. Footprint is always 0; it occupies no blackboard space.
	ComputedSizeOf string

	// Syncer is this element's own syncer, if directly assigned. Use
	// GetSyncer to resolve through ancestors (spec.md §4.C).
	Syncer syncer.Syncer
}

func (n *Node) isComposite() bool {
	return n.Kind == KindBlock || n.Kind == KindComponent
}

func (n *Node) isLeaf() bool {
	return n.Kind == KindScalar || n.Kind == KindArray || n.Kind == KindBitBlock
}

// Tree is the arena of Nodes forming the rooted element tree.
type Tree struct {
	nodes  []*Node
	root   ID
	frozen bool
}

// NewTree creates an empty, unfrozen tree.
func NewTree() *Tree {
	return &Tree{root: NoParent}
}

func (t *Tree) create(n *Node) ID {
	n.ID = ID(len(t.nodes))
	n.Parent = NoParent
	t.nodes = append(t.nodes, n)
	return n.ID
}

// CreateScalar creates a detached scalar parameter, per the builder
// interface of spec.md §6.
func (t *Tree) CreateScalar(name string, typ types.Type) ID {
	return t.create(&Node{Name: name, Kind: KindScalar, Type: typ, Footprint: typ.ByteSize()})
}

// CreateArray creates a detached array parameter of length elements of typ.
func (t *Tree) CreateArray(name string, typ types.Type, length int) ID {
	return t.create(&Node{Name: name, Kind: KindArray, Type: typ, ArrayLength: length, Footprint: typ.ByteSize() * length})
}

// CreateBlock creates a detached parameter block (composite).
func (t *Tree) CreateBlock(name string) ID {
	return t.create(&Node{Name: name, Kind: KindBlock})
}

// CreateBitBlock creates a detached bit block of the given layout.
func (t *Tree) CreateBitBlock(name string, bt *types.BitBlockType) ID {
	return t.create(&Node{Name: name, Kind: KindBitBlock, BitBlockType: bt, Footprint: bt.ByteSize()})
}

// CreateComponent creates a detached component/subsystem composite carrying
// mapping metadata and an optional per-subsystem endianness flag.
func (t *Tree) CreateComponent(name string, mapping map[string]string, bigEndian bool) ID {
	return t.create(&Node{Name: name, Kind: KindComponent, Mapping: mapping, BigEndian: bigEndian})
}

// CreateComputedSize creates a detached read-only scalar whose value is the
// footprint of referredSibling, a sibling element resolved at Freeze time.
func (t *Tree) CreateComputedSize(name string, typ types.Type, referredSibling string) ID {
	return t.create(&Node{Name: name, Kind: KindScalar, Type: typ, ComputedSizeOf: referredSibling})
}

// SetMapping attaches mapping metadata to any node, not only components;
// the mapper (spec.md §4.D) reads it at leaves as well as composites.
func (t *Tree) SetMapping(id ID, mapping map[string]string) error {
	if t.frozen {
		return pferrors.ForKind(pferrors.StateViolation, "tree is frozen")
	}
	n, err := t.Node(id)
	if err != nil {
		return err
	}
	n.Mapping = mapping
	return nil
}

// Node returns the node for id.
func (t *Tree) Node(id ID) (*Node, error) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, pferrors.ForKind(pferrors.PathNotFound, "no such element id %d", id)
	}
	return t.nodes[id], nil
}

// Root returns the frozen tree's root id.
func (t *Tree) Root() ID { return t.root }

// AddChild attaches child to parent. Both must be detached (child has no
// parent yet) and parent must be composite; sibling names must be unique
// (spec.md §3 invariant 1).
func (t *Tree) AddChild(parent, child ID) error {
	if t.frozen {
		return pferrors.ForKind(pferrors.StateViolation, "tree is frozen")
	}
	p, err := t.Node(parent)
	if err != nil {
		return err
	}
	c, err := t.Node(child)
	if err != nil {
		return err
	}
	if !p.isComposite() {
		return pferrors.ForKind(pferrors.InvariantViolation, "element %q cannot have children", p.Name)
	}
	if c.Parent != NoParent {
		return pferrors.ForKind(pferrors.StateViolation, "element %q already has a parent", c.Name)
	}
	for _, sibID := range p.Children {
		sib, _ := t.Node(sibID)
		if sib.Name == c.Name {
			return pferrors.ForKind(pferrors.InvariantViolation, "duplicate child name %q under %q", c.Name, p.Name)
		}
	}
	c.Parent = parent
	p.Children = append(p.Children, child)
	return nil
}

// Freeze assigns offsets by a depth-first walk in declaration order,
// resolves ComputedSize references, and marks the tree immutable
// (spec.md §3 invariant 4, §4.C "set_offset(base)").
func (t *Tree) Freeze() error {
	if t.frozen {
		return pferrors.ForKind(pferrors.StateViolation, "tree already frozen")
	}
	var roots []ID
	for _, n := range t.nodes {
		if n.Parent == NoParent {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) != 1 {
		return pferrors.ForKind(pferrors.InvariantViolation, "tree must have exactly one root; found %d", len(roots))
	}
	t.root = roots[0]

	if _, err := t.setOffset(t.root, 0); err != nil {
		return err
	}
	if err := t.resolveComputedSizes(); err != nil {
		return err
	}
	t.frozen = true
	return nil
}

// setOffset assigns offsets depth-first starting at base and returns the
// node's footprint.
func (t *Tree) setOffset(id ID, base int) (int, error) {
	n, err := t.Node(id)
	if err != nil {
		return 0, err
	}
	n.Offset = base

	if n.ComputedSizeOf != "" {
		n.Footprint = 0
		return 0, nil
	}

	if n.isLeaf() {
		return n.Footprint, nil
	}

	total := 0
	cur := base
	for _, childID := range n.Children {
		fp, err := t.setOffset(childID, cur)
		if err != nil {
			return 0, err
		}
		cur += fp
		total += fp
	}
	n.Footprint = total
	return total, nil
}

func (t *Tree) resolveComputedSizes() error {
	for _, n := range t.nodes {
		if n.ComputedSizeOf == "" {
			continue
		}
		parent, err := t.Node(n.Parent)
		if err != nil {
			return err
		}
		found := false
		for _, sibID := range parent.Children {
			sib, _ := t.Node(sibID)
			if sib.Name == n.ComputedSizeOf {
				found = true
				break
			}
		}
		if !found {
			return pferrors.ForKind(pferrors.InvariantViolation,
				"computed-size parameter %q refers to unknown sibling %q", n.Name, n.ComputedSizeOf)
		}
	}
	return nil
}

// ComputedSizeValue returns the current footprint of a computed-size
// element's referred sibling (original_source's
// ComputedSizeParameter::doGetValue, which never touches the blackboard).
func (t *Tree) ComputedSizeValue(id ID) (uint32, error) {
	n, err := t.Node(id)
	if err != nil {
		return 0, err
	}
	if n.ComputedSizeOf == "" {
		return 0, pferrors.ForKind(pferrors.TypeMismatch, "%q is not a computed-size parameter", n.Name)
	}
	parent, err := t.Node(n.Parent)
	if err != nil {
		return 0, err
	}
	for _, sibID := range parent.Children {
		sib, _ := t.Node(sibID)
		if sib.Name == n.ComputedSizeOf {
			return uint32(sib.Footprint), nil
		}
	}
	return 0, pferrors.ForKind(pferrors.InvariantViolation, "referred sibling %q vanished", n.ComputedSizeOf)
}

// GetSyncer walks up from id to the nearest ancestor (inclusive) carrying a
// syncer (spec.md §4.C).
func (t *Tree) GetSyncer(id ID) (syncer.Syncer, error) {
	for cur := id; cur != NoParent; {
		n, err := t.Node(cur)
		if err != nil {
			return nil, err
		}
		if n.Syncer != nil {
			return n.Syncer, nil
		}
		cur = n.Parent
	}
	return nil, nil
}

// FillSyncerSetFromDescendant walks down from id, adding every descendant's
// own syncer to set and not descending further into a covered subtree
// (spec.md §4.C).
func (t *Tree) FillSyncerSetFromDescendant(id ID, set *syncer.Set) error {
	n, err := t.Node(id)
	if err != nil {
		return err
	}
	if n.Syncer != nil {
		set.Add(n.Syncer)
		return nil
	}
	for _, childID := range n.Children {
		if err := t.FillSyncerSetFromDescendant(childID, set); err != nil {
			return err
		}
	}
	return nil
}

// Descendants returns every node id in the subtree rooted at id, including
// id itself, in depth-first declaration order.
func (t *Tree) Descendants(id ID) ([]ID, error) {
	n, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	ids := []ID{id}
	for _, c := range n.Children {
		sub, err := t.Descendants(c)
		if err != nil {
			return nil, err
		}
		ids = append(ids, sub...)
	}
	return ids, nil
}

// IsDescendantOf reports whether id is a (possibly indirect) descendant of
// ancestor.
func (t *Tree) IsDescendantOf(id, ancestor ID) bool {
	for cur := id; cur != NoParent; {
		n, err := t.Node(cur)
		if err != nil {
			return false
		}
		if n.Parent == ancestor {
			return true
		}
		cur = n.Parent
	}
	return false
}

// SortedChildNames returns child names of id in lexical order, a small
// convenience for deterministic listings/error messages.
func (t *Tree) SortedChildNames(id ID) ([]string, error) {
	n, err := t.Node(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		cn, _ := t.Node(c)
		names = append(names, cn.Name)
	}
	sort.Strings(names)
	return names, nil
}
