// Package rule implements the Rule Engine: a boolean tree of criterion
// matches deciding whether a configuration is applicable (spec.md §4.I).
package rule

import (
	"pfw/criterion"
	"pfw/internal/pferrors"
)

// Op is a Match atom's comparison operator.
type Op int

const (
	Is Op = iota
	IsNot
	Includes
	Excludes
)

// CompoundKind selects All (conjunction) or Any (disjunction) semantics.
type CompoundKind int

const (
	All CompoundKind = iota
	Any
)

// Rule is the algebraic type of spec.md §4.I: a Match atom or a Compound
// of sub-rules.
type Rule interface {
	Matches() (bool, error)
}

// Match is a single criterion comparison (spec.md §4.I, §3 "Match(criterion, op, value)").
type Match struct {
	Criterion *criterion.Criterion
	Op        Op
	Value     int64
}

// Matches implements Rule.
func (m Match) Matches() (bool, error) {
	state := m.Criterion.State()
	switch m.Op {
	case Is:
		return state == m.Value, nil
	case IsNot:
		return state != m.Value, nil
	case Includes, Excludes:
		if m.Criterion.Kind() != criterion.Inclusive {
			return false, pferrors.ForKind(pferrors.TypeMismatch,
				"criterion %q: Includes/Excludes require an inclusive criterion", m.Criterion.Name())
		}
		included := state&m.Value != 0
		if m.Op == Includes {
			return included, nil
		}
		return !included, nil
	default:
		return false, pferrors.ForKind(pferrors.InvariantViolation, "unknown rule op %d", m.Op)
	}
}

// Compound is a boolean combination of child rules (spec.md §4.I). An
// empty All matches (vacuous conjunction); an empty Any does not
// (vacuous disjunction).
type Compound struct {
	Kind     CompoundKind
	Children []Rule
}

// Matches implements Rule.
func (c Compound) Matches() (bool, error) {
	switch c.Kind {
	case All:
		for _, child := range c.Children {
			ok, err := child.Matches()
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Any:
		for _, child := range c.Children {
			ok, err := child.Matches()
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, pferrors.ForKind(pferrors.InvariantViolation, "unknown compound kind %d", c.Kind)
	}
}
