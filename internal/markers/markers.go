// Package markers implements PEP 508 environment marker parsing and
// evaluation: the boolean expressions on platform/interpreter facts that
// gate a requirement ("; python_version >= '3.8' and extra == 'test'").
//
// Grounded on deps.dev/util/resolve/pypi/markers.go's envParser and its
// marker/markerOr/markerAnd/markerExpr/markerVar/markerOp AST, generalized so
// that variable lookups happen against a caller-supplied environment map at
// Eval time instead of being resolved once against a fixed platform map at
// parse time, since spec.md §4.6 evaluates the same parsed marker against
// different environment maps during discovery.
package markers

import (
	"fmt"
	"strings"

	"github.com/tdejager/rip/internal/pep440"
)

// Names is the fixed set of environment marker variables spec.md §6 requires
// an evaluator to populate.
var Names = []string{
	"python_version",
	"python_full_version",
	"os_name",
	"sys_platform",
	"platform_release",
	"platform_system",
	"platform_version",
	"platform_machine",
	"platform_python_implementation",
	"implementation_name",
	"implementation_version",
	"extra",
}

// Environment is an evaluation-time binding of marker variable names to
// values. A zero Environment treats every variable as the empty string.
type Environment map[string]string

func (e Environment) lookup(name string) string {
	if e == nil {
		return ""
	}
	return e[name]
}

// Expr is a parsed marker expression.
type Expr interface {
	Eval(env Environment) bool
	String() string
}

type orExpr struct{ left, right Expr }

func (e orExpr) Eval(env Environment) bool { return e.left.Eval(env) || e.right.Eval(env) }
func (e orExpr) String() string            { return fmt.Sprintf("%s or %s", e.left, e.right) }

type andExpr struct{ left, right Expr }

func (e andExpr) Eval(env Environment) bool { return e.left.Eval(env) && e.right.Eval(env) }
func (e andExpr) String() string            { return fmt.Sprintf("%s and %s", e.left, e.right) }

// op is a marker comparison operator. PEP 508 allows the full PEP 440
// operator set plus "in" and "not in".
type op string

const (
	opEqual     op = "=="
	opNotEqual  op = "!="
	opLess      op = "<"
	opLessEq    op = "<="
	opGreater   op = ">"
	opGreaterEq op = ">="
	opIn        op = "in"
	opNotIn     op = "not in"
)

type value struct {
	variable string // non-empty when this operand is a marker variable
	literal  string // used when variable == ""
}

func (v value) resolve(env Environment) string {
	if v.variable != "" {
		return env.lookup(v.variable)
	}
	return v.literal
}

type cmpExpr struct {
	left, right value
	op          op
}

func (e cmpExpr) String() string {
	render := func(v value) string {
		if v.variable != "" {
			return v.variable
		}
		return "'" + v.literal + "'"
	}
	return fmt.Sprintf("%s %s %s", render(e.left), e.op, render(e.right))
}

// Eval compares the two resolved operand strings. When both operands parse
// as PEP 440 versions they are compared as versions; otherwise the operator
// is applied to the raw strings (lexicographic for ordering operators).
// Evaluation never returns an error.
func (e cmpExpr) Eval(env Environment) bool {
	lhs := e.left.resolve(env)
	rhs := e.right.resolve(env)

	switch e.op {
	case opIn:
		return strings.Contains(rhs, lhs)
	case opNotIn:
		return !strings.Contains(rhs, lhs)
	case opEqual, opNotEqual, opLess, opLessEq, opGreater, opGreaterEq:
		if lv, rv, ok := asVersions(lhs, rhs); ok {
			return evalVersionCmp(e.op, lv, rv)
		}
		switch e.op {
		case opEqual:
			return lhs == rhs
		case opNotEqual:
			return lhs != rhs
		case opLess:
			return lhs < rhs
		case opLessEq:
			return lhs <= rhs
		case opGreater:
			return lhs > rhs
		case opGreaterEq:
			return lhs >= rhs
		}
	}
	return false
}

func asVersions(a, b string) (pep440.Version, pep440.Version, bool) {
	av, err := pep440.Parse(a)
	if err != nil {
		return pep440.Version{}, pep440.Version{}, false
	}
	bv, err := pep440.Parse(b)
	if err != nil {
		return pep440.Version{}, pep440.Version{}, false
	}
	return av, bv, true
}

func evalVersionCmp(o op, a, b pep440.Version) bool {
	c := pep440.Compare(a, b)
	switch o {
	case opEqual:
		return c == 0
	case opNotEqual:
		return c != 0
	case opLess:
		return c < 0
	case opLessEq:
		return c <= 0
	case opGreater:
		return c > 0
	case opGreaterEq:
		return c >= 0
	}
	return false
}

// nameSet records the fixed marker variable names for fast lookup during
// parsing.
var nameSet = func() map[string]bool {
	m := make(map[string]bool, len(Names))
	for _, n := range Names {
		m[n] = true
	}
	return m
}()

// Parse parses a PEP 508 marker expression, the text following the ';' in a
// requirement string.
func Parse(s string) (Expr, error) {
	p := &parser{input: s}
	p.skipSpace()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("markers: unexpected trailing input %q", p.input[p.pos:])
	}
	return expr, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peekWord(word string) bool {
	p.skipSpace()
	if !strings.HasPrefix(p.input[p.pos:], word) {
		return false
	}
	end := p.pos + len(word)
	if end < len(p.input) && isIdentByte(p.input[end]) {
		return false
	}
	return true
}

func (p *parser) consumeWord(word string) bool {
	if !p.peekWord(word) {
		return false
	}
	p.pos += len(word)
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if p.consumeWord("or") {
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = orExpr{left, right}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		if p.consumeWord("and") {
			right, err := p.parseAtom()
			if err != nil {
				return nil, err
			}
			left = andExpr{left, right}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseAtom() (Expr, error) {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("markers: expected ')' in %q", p.input)
		}
		p.pos++
		return expr, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (Expr, error) {
	lhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	o, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return cmpExpr{left: lhs, right: rhs, op: o}, nil
}

func (p *parser) parseValue() (value, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return value{}, fmt.Errorf("markers: unexpected end of input")
	}
	if c := p.input[p.pos]; c == '\'' || c == '"' {
		quote := c
		end := strings.IndexByte(p.input[p.pos+1:], quote)
		if end < 0 {
			return value{}, fmt.Errorf("markers: unterminated string literal in %q", p.input)
		}
		lit := p.input[p.pos+1 : p.pos+1+end]
		p.pos = p.pos + 1 + end + 1
		return value{literal: lit}, nil
	}
	start := p.pos
	for p.pos < len(p.input) && isIdentByte(p.input[p.pos]) {
		p.pos++
	}
	word := p.input[start:p.pos]
	if word == "" {
		return value{}, fmt.Errorf("markers: expected value at %q", p.input[p.pos:])
	}
	if nameSet[word] {
		return value{variable: word}, nil
	}
	// Unknown bare identifier: treated as its literal text so that an
	// unrecognized marker key still parses. The comparison then uses that
	// text as the operand, so it is not always false: `foo == 'foo'`
	// evaluates true.
	return value{literal: word}, nil
}

func (p *parser) parseOp() (op, error) {
	p.skipSpace()
	rest := p.input[p.pos:]
	switch {
	case strings.HasPrefix(rest, "=="):
		p.pos += 2
		return opEqual, nil
	case strings.HasPrefix(rest, "!="):
		p.pos += 2
		return opNotEqual, nil
	case strings.HasPrefix(rest, "<="):
		p.pos += 2
		return opLessEq, nil
	case strings.HasPrefix(rest, ">="):
		p.pos += 2
		return opGreaterEq, nil
	case strings.HasPrefix(rest, "<"):
		p.pos += 1
		return opLess, nil
	case strings.HasPrefix(rest, ">"):
		p.pos += 1
		return opGreater, nil
	case p.consumeWord("not"):
		p.skipSpace()
		if !p.consumeWord("in") {
			return "", fmt.Errorf("markers: expected 'in' after 'not' in %q", p.input)
		}
		return opNotIn, nil
	case p.consumeWord("in"):
		return opIn, nil
	default:
		return "", fmt.Errorf("markers: expected comparison operator at %q", rest)
	}
}
