// Package domain implements the configuration/domain engine: per-element
// byte images (Area Configuration), named sets of them with an optional
// applicability rule (Domain Configuration), and the owning aggregate
// that decides and applies the winning configuration (Configurable
// Domain) — spec.md §4.F, §4.G, §4.H.
package domain

import (
	"io"

	"pfw/blackboard"
	"pfw/element"
	"pfw/internal/pferrors"
)

// AreaConfiguration is a per-(domain configuration, element) byte image
// and validity bit (spec.md §4.F).
type AreaConfiguration struct {
	elem  element.ID
	bytes []byte
	valid bool
}

// NewAreaConfiguration creates an invalid, zeroed area for elem covering
// footprint bytes.
func NewAreaConfiguration(elem element.ID, footprint int) *AreaConfiguration {
	return &AreaConfiguration{elem: elem, bytes: make([]byte, footprint)}
}

// Element returns the element this area covers.
func (a *AreaConfiguration) Element() element.ID { return a.elem }

// Valid reports whether the area's bytes reflect a saved/restored state.
func (a *AreaConfiguration) Valid() bool { return a.valid }

// Bytes returns the area's byte image.
func (a *AreaConfiguration) Bytes() []byte { return a.bytes }

func nodeExtent(tree *element.Tree, id element.ID) (offset, footprint int, err error) {
	n, err := tree.Node(id)
	if err != nil {
		return 0, 0, err
	}
	return n.Offset, n.Footprint, nil
}

// Save copies blackboard[element.offset, +footprint) into the area's
// bytes and marks it valid.
func (a *AreaConfiguration) Save(bb *blackboard.Blackboard, tree *element.Tree) error {
	offset, footprint, err := nodeExtent(tree, a.elem)
	if err != nil {
		return err
	}
	if err := bb.RawRead(a.bytes[:footprint], offset); err != nil {
		return err
	}
	a.valid = true
	return nil
}

// Restore copies the area's bytes back into the blackboard. Requires the
// area to be valid.
func (a *AreaConfiguration) Restore(bb *blackboard.Blackboard, tree *element.Tree) error {
	if !a.valid {
		return pferrors.ForKind(pferrors.StateViolation, "restoring invalid area for element %d", a.elem)
	}
	offset, _, err := nodeExtent(tree, a.elem)
	if err != nil {
		return err
	}
	return bb.RawWrite(a.bytes, offset)
}

// Validate saves from the blackboard if not already valid; otherwise a
// no-op.
func (a *AreaConfiguration) Validate(bb *blackboard.Blackboard, tree *element.Tree) error {
	if a.valid {
		return nil
	}
	return a.Save(bb, tree)
}

// ValidateAgainst copies other's bytes into this area and marks it valid.
// Both areas must cover the same element, and other must already be
// valid.
func (a *AreaConfiguration) ValidateAgainst(other *AreaConfiguration) error {
	if other.elem != a.elem {
		return pferrors.ForKind(pferrors.InvariantViolation, "validate_against: element mismatch (%d != %d)", a.elem, other.elem)
	}
	if !other.valid {
		return pferrors.ForKind(pferrors.StateViolation, "validate_against: source area for element %d is not valid", other.elem)
	}
	copy(a.bytes, other.bytes)
	a.valid = true
	return nil
}

// CopyFromInner copies inner's bytes into the matching slice of a's
// bytes. inner.Element() must be a descendant of a.Element().
func (a *AreaConfiguration) CopyFromInner(inner *AreaConfiguration, tree *element.Tree) error {
	rel, innerFootprint, err := innerSlice(a, inner, tree)
	if err != nil {
		return err
	}
	copy(a.bytes[rel:rel+innerFootprint], inner.bytes)
	return nil
}

// CopyToInner is the inverse of CopyFromInner: it copies the matching
// slice of a's bytes into inner's bytes and marks inner valid.
func (a *AreaConfiguration) CopyToInner(inner *AreaConfiguration, tree *element.Tree) error {
	rel, innerFootprint, err := innerSlice(a, inner, tree)
	if err != nil {
		return err
	}
	copy(inner.bytes, a.bytes[rel:rel+innerFootprint])
	inner.valid = true
	return nil
}

func innerSlice(outer, inner *AreaConfiguration, tree *element.Tree) (rel, innerFootprint int, err error) {
	if !tree.IsDescendantOf(inner.elem, outer.elem) {
		return 0, 0, pferrors.ForKind(pferrors.InvariantViolation,
			"element %d is not a descendant of %d", inner.elem, outer.elem)
	}
	outerOffset, _, err := nodeExtent(tree, outer.elem)
	if err != nil {
		return 0, 0, err
	}
	innerOffset, innerFootprint, err := nodeExtent(tree, inner.elem)
	if err != nil {
		return 0, 0, err
	}
	return innerOffset - outerOffset, innerFootprint, nil
}

// Serialize reads (out=false) or writes (out=true) the area's raw bytes
// to stream; an incoming read marks the area valid.
func (a *AreaConfiguration) Serialize(stream io.ReadWriter, out bool) error {
	if out {
		_, err := stream.Write(a.bytes)
		return err
	}
	if _, err := io.ReadFull(stream, a.bytes); err != nil {
		return err
	}
	a.valid = true
	return nil
}
