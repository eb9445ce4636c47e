// Package mapper implements the tree walk that instantiates subsystem
// objects from mapping metadata declared on elements (spec.md §4.D).
package mapper

import (
	"pfw/internal/pferrors"
)

// Context is a stack-scoped array of (key, value) slots: a subtree's
// mapping assignments are visible to its descendants and discarded once
// the walk backtracks out of it (spec.md §4.D "fills the context with new
// values for this subtree only").
type Context struct {
	slots map[string]string
	// assignedInSubtree records which keys this particular subtree level
	// has itself assigned, so a duplicate assignment within the same
	// subtree (not merely the same key reused by an unrelated sibling
	// subtree) is caught.
	assignedInSubtree map[string]bool
}

// NewContext returns an empty mapping context.
func NewContext() *Context {
	return &Context{slots: make(map[string]string), assignedInSubtree: make(map[string]bool)}
}

// Child derives a context for a child subtree: it inherits the parent's
// slot values but starts its own "assigned in this subtree" bookkeeping,
// so a key the parent set can be read here without tripping the
// duplicate-assignment check, while setting it again within this same
// subtree still trips it.
func (c *Context) Child() *Context {
	slots := make(map[string]string, len(c.slots))
	for k, v := range c.slots {
		slots[k] = v
	}
	return &Context{slots: slots, assignedInSubtree: make(map[string]bool)}
}

// Set assigns key=value for this subtree. Assigning the same key twice
// within one subtree is an error (spec.md §4.D "duplicate assignment of a
// context slot in the same subtree").
func (c *Context) Set(key, value string) error {
	if c.assignedInSubtree[key] {
		return pferrors.ForKind(pferrors.InvariantViolation, "mapping key %q assigned twice in the same subtree", key)
	}
	c.assignedInSubtree[key] = true
	c.slots[key] = value
	return nil
}

// IsSet reports whether key has a value visible at this point in the
// walk (set here or by an ancestor).
func (c *Context) IsSet(key string) bool {
	_, ok := c.slots[key]
	return ok
}

// Get returns key's value, if any.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.slots[key]
	return v, ok
}

// RequireAncestors checks that every key in keys is set, per a creator's
// ancestor_mask contract (spec.md §4.D). Returns the first missing key's
// name in the error.
func (c *Context) RequireAncestors(keys []string) error {
	for _, k := range keys {
		if !c.IsSet(k) {
			return pferrors.ForKind(pferrors.InvariantViolation, "missing required ancestor mapping key %q", k)
		}
	}
	return nil
}
