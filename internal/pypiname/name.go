// Package pypiname implements PEP 503 package-name normalization, the
// equality key every name crossing into the resolution core must be put
// through (spec.md §3).
//
// Grounded on deps.dev/util/pypi/metadata.go's CanonPackageName.
package pypiname

import "strings"

// Normalize returns the canonical form of a PyPI package or extra name:
// lower-cased, with runs of "-", "_" and "." collapsed to a single "-".
// Normalization is idempotent.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	inRun := false
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case 'a' <= c && c <= 'z', '0' <= c && c <= '9':
			b.WriteByte(c)
			inRun = false
		case 'A' <= c && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
			inRun = false
		case c == '-' || c == '_' || c == '.':
			if !inRun {
				b.WriteByte('-')
			}
			inRun = true
		default:
			inRun = false
		}
	}
	return b.String()
}

// NormalizeExtra normalizes an extra name using the same rule as package
// names (PEP 685 specifies extras are normalized identically).
func NormalizeExtra(extra string) string {
	return Normalize(extra)
}
