package pep440

import (
	"fmt"
	"strings"
)

// Op is a PEP 440 comparison operator.
type Op string

// The comparison operators defined by PEP 440.
const (
	OpEqual         Op = "=="
	OpNotEqual      Op = "!="
	OpLess          Op = "<"
	OpLessEqual     Op = "<="
	OpGreater       Op = ">"
	OpGreaterEqual  Op = ">="
	OpCompatible    Op = "~="
	OpArbitraryEqual Op = "==="
)

// Specifier is a single (operator, version) clause, possibly with a trailing
// ".*" wildcard recorded separately since a wildcard is not itself a valid
// release segment.
type Specifier struct {
	Op       Op
	Version  Version
	wildcard bool
	// raw holds the untouched version text, used only by "===" which compares
	// strings rather than parsed versions.
	raw string
}

// Specifiers is an ordered conjunction of Specifier clauses. The empty set is
// satisfied by every version, per spec.md §3.
type Specifiers []Specifier

// String renders the specifier set in its comma-joined textual form.
func (ss Specifiers) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s.Op) + s.raw
	}
	return strings.Join(parts, ",")
}

// ParseSpecifiers parses a comma-separated list of PEP 440 specifier
// clauses, e.g. ">=1.0,!=1.5.*,<2.0".
func ParseSpecifiers(s string) (Specifiers, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out Specifiers
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return nil, fmt.Errorf("pep440: empty specifier clause in %q", s)
		}
		spec, err := parseOne(clause)
		if err != nil {
			return nil, fmt.Errorf("pep440: %w", err)
		}
		out = append(out, spec)
	}
	return out, nil
}

var ops = []Op{OpArbitraryEqual, OpCompatible, OpLessEqual, OpGreaterEqual, OpEqual, OpNotEqual, OpLess, OpGreater}

func parseOne(clause string) (Specifier, error) {
	for _, op := range ops {
		if strings.HasPrefix(clause, string(op)) {
			rest := strings.TrimSpace(clause[len(op):])
			if rest == "" {
				return Specifier{}, fmt.Errorf("invalid specifier %q: missing version", clause)
			}
			spec := Specifier{Op: op, raw: rest}
			versionText := rest
			if strings.HasSuffix(rest, ".*") {
				if op != OpEqual && op != OpNotEqual {
					return Specifier{}, fmt.Errorf("invalid specifier %q: wildcard only allowed with == or !=", clause)
				}
				spec.wildcard = true
				versionText = strings.TrimSuffix(rest, ".*")
			}
			if op == OpArbitraryEqual {
				// === does a literal string comparison; still try to keep a
				// parsed form around for display purposes only.
				v, err := Parse(versionText)
				if err == nil {
					spec.Version = v
				}
				return spec, nil
			}
			v, err := Parse(versionText)
			if err != nil {
				return Specifier{}, fmt.Errorf("invalid specifier %q: %w", clause, err)
			}
			if op == OpCompatible && len(v.release) < 2 {
				return Specifier{}, fmt.Errorf("invalid specifier %q: ~= requires at least two release segments", clause)
			}
			spec.Version = v
			return spec, nil
		}
	}
	return Specifier{}, fmt.Errorf("invalid specifier %q: unknown operator", clause)
}

// SatisfiedBy reports whether v satisfies every clause in ss.
//
// Per PEP 440 §"Handling of pre-releases", pre-releases and dev-releases are
// excluded unless a clause explicitly names one; spec.md §4.3 filters those
// out earlier (policy: stable releases only), so SatisfiedBy itself applies
// no such filtering and is a pure per-clause conjunction.
func (ss Specifiers) SatisfiedBy(v Version) (bool, error) {
	for _, s := range ss {
		ok, err := s.satisfiedBy(v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s Specifier) satisfiedBy(v Version) (bool, error) {
	switch s.Op {
	case OpArbitraryEqual:
		return v.raw == s.raw || v.Canon() == s.raw, nil
	case OpEqual:
		if s.wildcard {
			return releasePrefixMatch(v, s.Version), nil
		}
		return Compare(v, s.Version) == 0 && sameLocal(v, s.Version), nil
	case OpNotEqual:
		if s.wildcard {
			return !releasePrefixMatch(v, s.Version), nil
		}
		return !(Compare(v, s.Version) == 0 && sameLocal(v, s.Version)), nil
	case OpLess:
		return Compare(v, s.Version) < 0 && !(v.IsPrerelease() && sameRelease(v, s.Version)), nil
	case OpLessEqual:
		return Compare(v, s.Version) <= 0, nil
	case OpGreater:
		return Compare(v, s.Version) > 0, nil
	case OpGreaterEqual:
		return Compare(v, s.Version) >= 0, nil
	case OpCompatible:
		return compatibleRelease(v, s.Version), nil
	default:
		return false, fmt.Errorf("pep440: unknown operator %q", s.Op)
	}
}

// releasePrefixMatch implements the "==1.1.*" family: true if v's release
// segments start with want's and both have the same epoch, ignoring the local
// version.
func releasePrefixMatch(v, want Version) bool {
	if v.epoch != want.epoch {
		return false
	}
	if len(want.release) > len(v.release) {
		return false
	}
	for i := range want.release {
		if v.release[i] != want.release[i] {
			return false
		}
	}
	return true
}

func sameRelease(v, w Version) bool {
	n := len(v.release)
	if len(w.release) > n {
		n = len(w.release)
	}
	for i := 0; i < n; i++ {
		if releaseAt(v, i) != releaseAt(w, i) {
			return false
		}
	}
	return true
}

func sameLocal(v, w Version) bool {
	if len(v.local) != len(w.local) {
		return false
	}
	for i := range v.local {
		if v.local[i] != w.local[i] {
			return false
		}
	}
	return true
}

// compatibleRelease implements "~=": "~= V.N" means ">= V.N, == V.*" with the
// trailing release segment stripped for the prefix match.
func compatibleRelease(v, want Version) bool {
	if len(want.release) < 2 {
		return false
	}
	prefix := Version{epoch: want.epoch, release: want.release[:len(want.release)-1]}
	return Compare(v, want) >= 0 && releasePrefixMatch(v, prefix)
}
