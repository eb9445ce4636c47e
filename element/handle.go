// ElementHandle (supplemental feature #2, grounded on
// original_source/parameter/ElementHandle.cpp and include/ElementHandle.h):
// a lightweight, string-path-addressed accessor bundling get/set plus
// array/bit-field helpers, the recommended public entry point for
// parameter access.
package element

import (
	"context"

	"pfw/blackboard"
	"pfw/internal/pferrors"
	"pfw/types"
)

// Handle resolves textual element paths against a frozen Tree and
// performs typed get/set against a Blackboard (spec.md §4.C).
type Handle struct {
	tree *Tree
	bb   *blackboard.Blackboard

	tuningMode bool
	autoSync   bool
}

// NewHandle creates a Handle over tree and bb.
func NewHandle(tree *Tree, bb *blackboard.Blackboard) *Handle {
	return &Handle{tree: tree, bb: bb}
}

// Configure sets the tuning-mode/auto-sync flags a Set/SetBitField call
// consults to decide whether a successful write triggers its covering
// syncer (spec.md §4.C, §6). The engine calls this whenever its bring-up
// configuration changes.
func (h *Handle) Configure(tuningMode, autoSync bool) {
	h.tuningMode = tuningMode
	h.autoSync = autoSync
}

// triggerSync resolves the syncer covering id and pushes the blackboard
// through it, used after a tuning-mode write with auto-sync enabled
// (spec.md §4.C). The offending path is appended to any resulting error.
func (h *Handle) triggerSync(ctx context.Context, path string, id ID) error {
	s, err := h.tree.GetSyncer(id)
	if err != nil {
		return pferrors.Wrap(err, "resolving syncer for "+path).WithPath(path)
	}
	if s == nil {
		return nil
	}
	if err := s.Sync(ctx, h.bb, false); err != nil {
		return pferrors.Wrap(err, "auto-syncing "+path).WithPath(path)
	}
	return nil
}

// bigEndianFor walks up from id to the nearest Component ancestor's
// endianness flag (spec.md §3 "Component/Subsystem: ... optional
// endianness flag").
func (t *Tree) bigEndianFor(id ID) bool {
	for cur := id; cur != NoParent; {
		n, err := t.Node(cur)
		if err != nil {
			return false
		}
		if n.Kind == KindComponent {
			return n.BigEndian
		}
		cur = n.Parent
	}
	return false
}

func (h *Handle) resolveScalarLike(path string) (*Node, Resolved, error) {
	r, err := h.tree.Resolve(ParsePath(path))
	if err != nil {
		return nil, r, err
	}
	n, err := h.tree.Node(r.ID)
	if err != nil {
		return nil, r, err
	}
	return n, r, nil
}

// Get reads the textual value at path.
func (h *Handle) Get(path string, ctx types.AccessContext) (string, error) {
	n, r, err := h.resolveScalarLike(path)
	if err != nil {
		return "", err
	}
	switch n.Kind {
	case KindScalar:
		if n.ComputedSizeOf != "" {
			v, err := h.tree.ComputedSizeValue(n.ID)
			if err != nil {
				return "", err
			}
			return n.Type.FromBlackboard(v, ctx)
		}
		word, err := h.bb.Read(n.Offset, n.Type.ByteSize(), h.tree.bigEndianFor(n.ID))
		if err != nil {
			return "", err
		}
		return n.Type.FromBlackboard(word, ctx)
	case KindArray:
		if !r.HasIndex {
			return "", pferrors.ForKind(pferrors.PathNotExhausted, "array %q requires an index", n.Name).WithPath(path)
		}
		offset := n.Offset + r.Index*n.Type.ByteSize()
		word, err := h.bb.Read(offset, n.Type.ByteSize(), h.tree.bigEndianFor(n.ID))
		if err != nil {
			return "", err
		}
		return n.Type.FromBlackboard(word, ctx)
	default:
		return "", pferrors.ForKind(pferrors.TypeMismatch, "%q is not a scalar/array parameter; use GetBitField", n.Name).WithPath(path)
	}
}

// Set writes the textual value at path. When tuning mode and auto-sync
// are both enabled (Configure), a successful write triggers the
// element's covering syncer before Set returns (spec.md §4.C).
func (h *Handle) Set(ctx context.Context, path, value string, actx types.AccessContext) error {
	n, r, err := h.resolveScalarLike(path)
	if err != nil {
		return err
	}
	switch n.Kind {
	case KindScalar:
		if n.ComputedSizeOf != "" {
			return pferrors.ForKind(pferrors.StateViolation, "%q is a computed-size parameter and is read-only", n.Name).WithPath(path)
		}
		word, err := n.Type.ToBlackboard(value, actx)
		if err != nil {
			return pferrors.Wrap(err, "setting "+path).WithPath(path)
		}
		if err := h.bb.Write(word, n.Offset, n.Type.ByteSize(), h.tree.bigEndianFor(n.ID)); err != nil {
			return err
		}
		return h.autoSyncIfEnabled(ctx, path, n.ID)
	case KindArray:
		if !r.HasIndex {
			return pferrors.ForKind(pferrors.PathNotExhausted, "array %q requires an index", n.Name).WithPath(path)
		}
		word, err := n.Type.ToBlackboard(value, actx)
		if err != nil {
			return pferrors.Wrap(err, "setting "+path).WithPath(path)
		}
		offset := n.Offset + r.Index*n.Type.ByteSize()
		if err := h.bb.Write(word, offset, n.Type.ByteSize(), h.tree.bigEndianFor(n.ID)); err != nil {
			return err
		}
		return h.autoSyncIfEnabled(ctx, path, n.ID)
	default:
		return pferrors.ForKind(pferrors.TypeMismatch, "%q is not a scalar/array parameter; use SetBitField", n.Name).WithPath(path)
	}
}

// autoSyncIfEnabled triggers id's covering syncer if tuning mode and
// auto-sync are both on, a no-op otherwise.
func (h *Handle) autoSyncIfEnabled(ctx context.Context, path string, id ID) error {
	if !h.tuningMode || !h.autoSync {
		return nil
	}
	return h.triggerSync(ctx, path, id)
}

// GetBitField reads a single named field out of the bit block at path.
func (h *Handle) GetBitField(path, fieldName string, ctx types.AccessContext) (string, error) {
	n, _, err := h.resolveScalarLike(path)
	if err != nil {
		return "", err
	}
	if n.Kind != KindBitBlock {
		return "", pferrors.ForKind(pferrors.TypeMismatch, "%q is not a bit block", n.Name).WithPath(path)
	}
	f, ok := n.BitBlockType.Field(fieldName)
	if !ok {
		return "", pferrors.ForKind(pferrors.PathNotFound, "no bit field %q in %q", fieldName, n.Name).WithPath(path)
	}
	word, err := h.bb.Read(n.Offset, n.BitBlockType.ByteSize(), h.tree.bigEndianFor(n.ID))
	if err != nil {
		return "", err
	}
	return n.BitBlockType.FromField(f, word, ctx)
}

// SetBitField writes a single named field into the bit block at path,
// masking it into the word and preserving sibling bits (spec.md §4.B).
// As with Set, a successful write triggers auto-sync per Configure.
func (h *Handle) SetBitField(ctx context.Context, path, fieldName, value string, actx types.AccessContext) error {
	n, _, err := h.resolveScalarLike(path)
	if err != nil {
		return err
	}
	if n.Kind != KindBitBlock {
		return pferrors.ForKind(pferrors.TypeMismatch, "%q is not a bit block", n.Name).WithPath(path)
	}
	f, ok := n.BitBlockType.Field(fieldName)
	if !ok {
		return pferrors.ForKind(pferrors.PathNotFound, "no bit field %q in %q", fieldName, n.Name).WithPath(path)
	}
	fieldVal, err := n.BitBlockType.ToField(f, value)
	if err != nil {
		return pferrors.Wrap(err, "setting "+path+"/"+fieldName).WithPath(path + "/" + fieldName)
	}
	bigEndian := h.tree.bigEndianFor(n.ID)
	word, err := h.bb.Read(n.Offset, n.BitBlockType.ByteSize(), bigEndian)
	if err != nil {
		return err
	}
	newWord, err := n.BitBlockType.Set(word, f, fieldVal)
	if err != nil {
		return err
	}
	if err := h.bb.Write(newWord, n.Offset, n.BitBlockType.ByteSize(), bigEndian); err != nil {
		return err
	}
	return h.autoSyncIfEnabled(ctx, path, n.ID)
}
