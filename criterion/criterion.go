// Package criterion implements Selection Criteria: named, typed runtime
// state the rule engine matches configurations against (spec.md §4.J).
package criterion

import (
	"sort"
	"strings"

	"pfw/internal/pferrors"
)

// Kind distinguishes exclusive (single numeric state) from inclusive
// (bitmask state) criteria.
type Kind int

const (
	Exclusive Kind = iota
	Inclusive
)

// ValuePair associates a criterion's numeric state with its lexical
// literal (spec.md §4.J "Value mapping is (numeric, literal)").
type ValuePair struct {
	Numeric int64
	Literal string
}

// Observer is notified synchronously whenever a criterion's state
// changes (spec.md §4.J "a single observer pointer").
type Observer interface {
	CriterionChanged(name string, oldState, newState int64)
}

// Criterion is one named selection criterion.
type Criterion struct {
	name       string
	kind       Kind
	byLiteral  map[string]int64
	byNumeric  map[int64]string
	allBits    int64 // union of all declared numeric values, inclusive criteria only
	state      int64
	observer   Observer
}

// New creates a criterion. pairs' literals and numerics must each be
// unique; for Inclusive criteria every numeric value must be zero or a
// single bit (a power of two) since state is a bitmask over them (spec.md §4.J,
// §3 "|V| <= 32 for inclusive kind").
func New(name string, kind Kind, pairs []ValuePair) (*Criterion, error) {
	if kind == Inclusive && len(pairs) > 32 {
		return nil, pferrors.ForKind(pferrors.InvariantViolation, "criterion %q: inclusive value set exceeds 32 entries", name)
	}
	c := &Criterion{
		name:      name,
		kind:      kind,
		byLiteral: make(map[string]int64, len(pairs)),
		byNumeric: make(map[int64]string, len(pairs)),
	}
	for _, p := range pairs {
		if _, dup := c.byLiteral[p.Literal]; dup {
			return nil, pferrors.ForKind(pferrors.InvariantViolation, "criterion %q: duplicate literal %q", name, p.Literal)
		}
		if _, dup := c.byNumeric[p.Numeric]; dup {
			return nil, pferrors.ForKind(pferrors.InvariantViolation, "criterion %q: duplicate numeric value %d", name, p.Numeric)
		}
		if kind == Inclusive && p.Numeric != 0 && p.Numeric&(p.Numeric-1) != 0 {
			return nil, pferrors.ForKind(pferrors.InvariantViolation, "criterion %q: inclusive value %d for %q is not a single bit", name, p.Numeric, p.Literal)
		}
		c.byLiteral[p.Literal] = p.Numeric
		c.byNumeric[p.Numeric] = p.Literal
		c.allBits |= p.Numeric
	}
	return c, nil
}

// Name returns the criterion's name.
func (c *Criterion) Name() string { return c.name }

// Kind returns the criterion's kind.
func (c *Criterion) Kind() Kind { return c.kind }

// State returns the current numeric state.
func (c *Criterion) State() int64 { return c.state }

// Subscribe installs the single observer (replacing any previous one).
func (c *Criterion) Subscribe(o Observer) { c.observer = o }

func (c *Criterion) setState(v int64) {
	old := c.state
	c.state = v
	if old != v && c.observer != nil {
		c.observer.CriterionChanged(c.name, old, v)
	}
}

// SetStateNumeric sets the raw numeric state directly. For Exclusive
// criteria v must be a declared value; for Inclusive criteria v must be a
// subset of the declared bits.
func (c *Criterion) SetStateNumeric(v int64) error {
	switch c.kind {
	case Exclusive:
		if _, ok := c.byNumeric[v]; !ok {
			return pferrors.ForKind(pferrors.OutOfRange, "criterion %q: %d is not a declared value", c.name, v)
		}
	case Inclusive:
		if v&^c.allBits != 0 {
			return pferrors.ForKind(pferrors.OutOfRange, "criterion %q: state %d has bits outside the declared value set", c.name, v)
		}
	}
	c.setState(v)
	return nil
}

// SetStateLexical parses expr and sets state from it. For Exclusive
// criteria expr must be exactly one literal. For Inclusive criteria expr
// is a space-separated list of literals ORed together (spec.md §4.J).
func (c *Criterion) SetStateLexical(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return pferrors.ForKind(pferrors.InvalidFormat, "criterion %q: empty state expression", c.name)
	}
	if c.kind == Exclusive {
		if len(fields) != 1 {
			return pferrors.ForKind(pferrors.InvalidFormat, "criterion %q: exclusive state must be a single literal, got %q", c.name, expr)
		}
		v, ok := c.byLiteral[fields[0]]
		if !ok {
			return pferrors.ForKind(pferrors.InvalidFormat, "criterion %q: unknown literal %q", c.name, fields[0])
		}
		c.setState(v)
		return nil
	}
	var acc int64
	for _, f := range fields {
		v, ok := c.byLiteral[f]
		if !ok {
			return pferrors.ForKind(pferrors.InvalidFormat, "criterion %q: unknown literal %q", c.name, f)
		}
		acc |= v
	}
	c.setState(acc)
	return nil
}

// ParseValue resolves a rule atom's textual value, which must be one of
// the criterion's declared literals, to its numeric form. Any other text,
// including a bare number, is rejected.
func (c *Criterion) ParseValue(s string) (int64, error) {
	if v, ok := c.byLiteral[s]; ok {
		return v, nil
	}
	return 0, pferrors.ForKind(pferrors.InvalidFormat, "criterion %q: unknown literal %q", c.name, s)
}

// ValuePairs returns the criterion's declared (numeric, literal) pairs
// sorted by numeric value, for diagnostics and structure fingerprinting.
func (c *Criterion) ValuePairs() []ValuePair {
	pairs := make([]ValuePair, 0, len(c.byNumeric))
	for n, lit := range c.byNumeric {
		pairs = append(pairs, ValuePair{Numeric: n, Literal: lit})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Numeric < pairs[j].Numeric })
	return pairs
}

// FormatCSV renders "name,state" for diagnostic dumps.
func (c *Criterion) FormatCSV() string {
	return c.name + "," + c.lexicalState()
}

func (c *Criterion) lexicalState() string {
	if c.kind == Exclusive {
		if lit, ok := c.byNumeric[c.state]; ok {
			return lit
		}
		return ""
	}
	var lits []string
	for n, lit := range c.byNumeric {
		if c.state&n != 0 {
			lits = append(lits, lit)
		}
	}
	sort.Strings(lits)
	return strings.Join(lits, " ")
}

// FormatXML renders a minimal XML element for diagnostic dumps.
func (c *Criterion) FormatXML() string {
	return "<Criterion name=\"" + c.name + "\" state=\"" + c.lexicalState() + "\"/>"
}
