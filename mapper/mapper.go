package mapper

import (
	"sort"

	"pfw/element"
	"pfw/internal/pferrors"
)

// SubsystemObject is whatever a Creator produces: an opaque handle the
// concrete subsystem backend understands (spec.md §4.D). The framework
// core never interprets it.
type SubsystemObject interface{}

// Creator instantiates a SubsystemObject for one mapping key (spec.md
// §4.D "Creator contract").
type Creator struct {
	// MappingKey is the metadata field that selects this creator.
	MappingKey string
	// AncestorMask lists context keys that must already be populated by
	// an ancestor before this creator may run.
	AncestorMask []string
	// MaxElementSize bounds the element's footprint in bytes; 0 means
	// unbounded.
	MaxElementSize int
	// AmendKeys orders the context keys %1.. %9 refer to for this
	// creator's mapping value amendments. Walk itself does not read it.
	AmendKeys []string
	// New builds the subsystem object from the mapping value exactly as
	// declared (quotes and %N amendments unresolved), the element it's
	// bound to, and the mapping context
	// visible at that point in the walk.
	New func(mappingValue string, node *element.Node, ctx *Context) (SubsystemObject, error)
}

// Registry holds the set of creators a subsystem contributes, keyed by
// mapping_key.
type Registry struct {
	creators map[string]Creator
}

// NewRegistry returns an empty creator registry.
func NewRegistry() *Registry {
	return &Registry{creators: make(map[string]Creator)}
}

// Register adds c. Duplicate mapping keys are rejected.
func (r *Registry) Register(c Creator) error {
	if _, exists := r.creators[c.MappingKey]; exists {
		return pferrors.ForKind(pferrors.InvariantViolation, "duplicate subsystem object creator for mapping key %q", c.MappingKey)
	}
	r.creators[c.MappingKey] = c
	return nil
}

func (r *Registry) lookup(key string) (Creator, bool) {
	c, ok := r.creators[key]
	return c, ok
}

// Walk performs the mapping tree walk of spec.md §4.D starting at root,
// returning every instantiated subsystem object keyed by the element that
// produced it.
func Walk(tree *element.Tree, root element.ID, registry *Registry) (map[element.ID]SubsystemObject, error) {
	objects := make(map[element.ID]SubsystemObject)
	if err := walk(tree, root, registry, NewContext(), objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func walk(tree *element.Tree, id element.ID, registry *Registry, ctx *Context, objects map[element.ID]SubsystemObject) error {
	n, err := tree.Node(id)
	if err != nil {
		return err
	}
	path, _ := tree.Path(id)

	child := ctx.Child()
	keys := make([]string, 0, len(n.Mapping))
	for k := range n.Mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := child.Set(k, n.Mapping[k]); err != nil {
			return err.(*pferrors.E).WithPath(path)
		}
	}

	var matched *Creator
	var matchedValue string
	for _, k := range keys {
		if c, ok := registry.lookup(k); ok {
			cc := c
			matched = &cc
			matchedValue = n.Mapping[k]
			break
		}
	}

	if matched != nil {
		if err := child.RequireAncestors(matched.AncestorMask); err != nil {
			return err.(*pferrors.E).WithPath(path)
		}
		if matched.MaxElementSize > 0 && n.Footprint > matched.MaxElementSize {
			return pferrors.ForKind(pferrors.InvariantViolation,
				"element exceeds max size for mapping key %q: %d > %d", matched.MappingKey, n.Footprint, matched.MaxElementSize).WithPath(path)
		}
		obj, err := matched.New(matchedValue, n, child)
		if err != nil {
			return err
		}
		objects[id] = obj
		return nil
	}

	for _, c := range n.Children {
		if err := walk(tree, c, registry, child, objects); err != nil {
			return err
		}
	}
	return nil
}
