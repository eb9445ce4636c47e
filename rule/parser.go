package rule

import (
	"strconv"

	"pfw/criterion"
	"pfw/internal/pferrors"
)

// Lookup resolves a criterion by name for the parser.
type Lookup func(name string) (*criterion.Criterion, bool)

// Parse parses the textual rule grammar of spec.md §4.I:
//
//	Rule  := "All" "{" List "}" | "Any" "{" List "}" | Atom
//	List  := Rule ("," Rule)*
//	Atom  := name " " op " " value
//
// A bare Atom is accepted at any nesting depth, including the root,
// matching original_source/parameter/RuleParser.cpp's grammar (which the
// spec.md prose undersells but the grammar already allows).
func Parse(text string, lookup Lookup) (Rule, error) {
	p := &parser{s: text, lookup: lookup}
	r, err := p.parseRule()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.s) {
		return nil, pferrors.ForKind(pferrors.InvalidFormat, "trailing input at position %d in rule %q", p.pos, text)
	}
	return r, nil
}

type parser struct {
	s      string
	pos    int
	lookup Lookup
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

// readToken consumes characters up to (not including) the next space,
// '{', '}' or ','.
func (p *parser) readToken() (string, error) {
	start := p.pos
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '{', '}', ',':
			goto done
		}
		p.pos++
	}
done:
	if p.pos == start {
		return "", pferrors.ForKind(pferrors.InvalidFormat, "syntax error at position %d in rule %q", p.pos, p.s)
	}
	return p.s[start:p.pos], nil
}

func (p *parser) parseRule() (Rule, error) {
	p.skipSpaces()
	token, err := p.readToken()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.peek() == '{' {
		return p.parseCompound(token)
	}
	return p.parseAtom(token)
}

func (p *parser) parseCompound(typeToken string) (Rule, error) {
	var kind CompoundKind
	switch typeToken {
	case "All":
		kind = All
	case "Any":
		kind = Any
	default:
		return nil, pferrors.ForKind(pferrors.InvalidFormat, "unknown rule type %q", typeToken)
	}
	p.pos++ // consume '{'
	p.skipSpaces()

	var children []Rule
	if p.peek() == '}' {
		p.pos++
		return Compound{Kind: kind, Children: children}, nil
	}
	for {
		child, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		p.skipSpaces()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case '}':
			p.pos++
			return Compound{Kind: kind, Children: children}, nil
		default:
			return nil, pferrors.ForKind(pferrors.InvalidFormat, "expected ',' or '}' at position %d in rule %q", p.pos, p.s)
		}
	}
}

func (p *parser) parseAtom(name string) (Rule, error) {
	p.skipSpaces()
	opToken, err := p.readToken()
	if err != nil {
		return nil, err
	}
	op, err := parseOp(opToken)
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	valueToken, err := p.readToken()
	if err != nil {
		return nil, err
	}

	crit, ok := p.lookup(name)
	if !ok {
		return nil, pferrors.ForKind(pferrors.PathNotFound, "unknown criterion %q", name)
	}
	value, err := parseAtomValue(crit, op, valueToken)
	if err != nil {
		return nil, err
	}
	return Match{Criterion: crit, Op: op, Value: value}, nil
}

func parseOp(token string) (Op, error) {
	switch token {
	case "Is":
		return Is, nil
	case "IsNot":
		return IsNot, nil
	case "Includes":
		return Includes, nil
	case "Excludes":
		return Excludes, nil
	default:
		return 0, pferrors.ForKind(pferrors.InvalidFormat, "unknown rule operator %q", token)
	}
}

// parseAtomValue resolves valueToken to a criterion's numeric domain: a
// declared literal first, falling back to a bare integer so tooling can
// write rules in either form.
func parseAtomValue(crit *criterion.Criterion, op Op, valueToken string) (int64, error) {
	if v, err := crit.ParseValue(valueToken); err == nil {
		return v, nil
	}
	v, err := strconv.ParseInt(valueToken, 0, 64)
	if err != nil {
		return 0, pferrors.ForKind(pferrors.InvalidFormat, "criterion %q: unknown value %q", crit.Name(), valueToken)
	}
	return v, nil
}
