// Package requirement parses PEP 508 dependency specifiers: the strings
// found in a project's install requirements and in a distribution's
// Requires-Dist metadata field, e.g. "requests[socks]>=2.20,<3; extra == 'net'".
//
// Grounded on deps.dev/util/pypi/metadata.go's Dependency/ParseDependency,
// generalized to keep the parsed marker as a markers.Expr evaluated later
// against a caller-supplied environment rather than resolved at parse time.
package requirement

import (
	"fmt"
	"strings"

	"github.com/tdejager/rip/internal/markers"
	"github.com/tdejager/rip/internal/pep440"
	"github.com/tdejager/rip/internal/pypiname"
)

// Requirement is a single parsed dependency specifier.
type Requirement struct {
	// Name is PEP 503 normalized.
	Name string
	// RawName preserves the as-written distribution name for display.
	RawName string
	// Extras are PEP 508 extras requested on this dependency, normalized.
	Extras []string
	// Specifiers constrains acceptable versions. Empty means "any version".
	Specifiers pep440.Specifiers
	// URL is set for a direct-reference requirement ("name @ url") instead
	// of a version-constrained one. Mutually exclusive with Specifiers.
	URL string
	// Marker is the parsed environment marker, or nil if the requirement is
	// unconditional.
	Marker markers.Expr
}

// String renders the requirement close to its original PEP 508 form.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.RawName)
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	if r.URL != "" {
		fmt.Fprintf(&b, " @ %s", r.URL)
	} else if len(r.Specifiers) > 0 {
		b.WriteString(r.Specifiers.String())
	}
	if r.Marker != nil {
		fmt.Fprintf(&b, "; %s", r.Marker)
	}
	return b.String()
}

// MatchesExtras reports whether the requirement is active given the set of
// extras activated on its owning package, by evaluating Marker against env
// once per activated extra (plus once with extra unset, for the common case
// of an unconditional or non-extra-gated marker). Per spec.md §4.6, a
// dependency with no marker is always active.
func (r Requirement) MatchesExtras(env markers.Environment, activeExtras []string) bool {
	if r.Marker == nil {
		return true
	}
	base := cloneEnv(env)
	if _, hasExtra := base["extra"]; !hasExtra {
		base["extra"] = ""
	}
	if r.Marker.Eval(base) {
		return true
	}
	for _, extra := range activeExtras {
		withExtra := cloneEnv(env)
		withExtra["extra"] = extra
		if r.Marker.Eval(withExtra) {
			return true
		}
	}
	return false
}

func cloneEnv(env markers.Environment) markers.Environment {
	out := make(markers.Environment, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Parse parses a single PEP 508 requirement string.
func Parse(s string) (Requirement, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Requirement{}, fmt.Errorf("requirement: empty string")
	}

	rest := s
	if idx := strings.IndexByte(rest, ';'); idx >= 0 {
		markerText := strings.TrimSpace(rest[idx+1:])
		rest = strings.TrimSpace(rest[:idx])
		if markerText != "" {
			expr, err := markers.Parse(markerText)
			if err != nil {
				return Requirement{}, fmt.Errorf("requirement: %w", err)
			}
			return parseNameAndConstraint(s, rest, expr)
		}
	}
	return parseNameAndConstraint(s, rest, nil)
}

func parseNameAndConstraint(original, rest string, marker markers.Expr) (Requirement, error) {
	rest = strings.TrimSpace(rest)

	nameEnd := 0
	for nameEnd < len(rest) && isNameByte(rest[nameEnd]) {
		nameEnd++
	}
	if nameEnd == 0 {
		return Requirement{}, fmt.Errorf("requirement: %q: missing distribution name", original)
	}
	rawName := rest[:nameEnd]
	rest = strings.TrimSpace(rest[nameEnd:])

	r := Requirement{
		Name:    pypiname.Normalize(rawName),
		RawName: rawName,
		Marker:  marker,
	}

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Requirement{}, fmt.Errorf("requirement: %q: unterminated extras list", original)
		}
		extrasText := rest[1:end]
		rest = strings.TrimSpace(rest[end+1:])
		for _, e := range strings.Split(extrasText, ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			r.Extras = append(r.Extras, pypiname.NormalizeExtra(e))
		}
	}

	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "@") {
		r.URL = strings.TrimSpace(rest[1:])
		return r, nil
	}
	if rest == "" {
		return r, nil
	}
	// A parenthesized specifier set, e.g. "foo (>=1.0,<2.0)".
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = rest[1 : len(rest)-1]
	}
	specs, err := pep440.ParseSpecifiers(rest)
	if err != nil {
		return Requirement{}, fmt.Errorf("requirement: %q: %w", original, err)
	}
	r.Specifiers = specs
	return r, nil
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' || c == '.' ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
