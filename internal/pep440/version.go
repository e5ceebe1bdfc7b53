// Package pep440 implements the version grammar and ordering defined by
// PEP 440 (https://www.python.org/dev/peps/pep-0440/).
//
// Spec.md treats the version grammar and specifier engine as an assumed
// external collaborator, exposing only parsing plus a satisfied_by(version)
// predicate. This package is that collaborator's concrete implementation,
// following the same epoch/release/pre/post/dev/local model and rank-based
// comparison the teacher's own PEP 440 engine uses
// (deps.dev/util/semver/pep440.go), generalized down to a self-contained
// PyPI-only package rather than the teacher's multi-ecosystem Version type.
package pep440

import (
	"fmt"
	"strconv"
	"strings"
)

// preTag is the canonical spelling of a prerelease segment.
type preTag string

const (
	preNone  preTag = ""
	preAlpha preTag = "a"
	preBeta  preTag = "b"
	preRC    preTag = "rc"
)

// Version is a parsed PEP 440 version.
//
// The zero Version is not meaningful; always construct one with Parse.
type Version struct {
	raw     string
	epoch   int
	release []int

	pre    preTag
	preNum int

	hasPost bool
	postNum int

	hasDev bool
	devNum int

	// local holds the dot-separated segments of the local version label,
	// lower-cased, with '-' and '_' normalized to '.'. Empty if absent.
	local []string
}

// String returns the original text that was parsed.
func (v Version) String() string { return v.raw }

// IsPrerelease reports whether the version has an "a", "b" or "rc" segment.
func (v Version) IsPrerelease() bool { return v.pre != preNone }

// IsDevRelease reports whether the version has a ".devN" segment.
func (v Version) IsDevRelease() bool { return v.hasDev }

// Canon returns the canonical PEP 440 rendering of the version.
func (v Version) Canon() string {
	var b strings.Builder
	if v.epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.epoch)
	}
	for i, r := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", r)
	}
	if v.pre != preNone {
		fmt.Fprintf(&b, "%s%d", v.pre, v.preNum)
	}
	if v.hasPost {
		fmt.Fprintf(&b, ".post%d", v.postNum)
	}
	if v.hasDev {
		fmt.Fprintf(&b, ".dev%d", v.devNum)
	}
	if len(v.local) > 0 {
		fmt.Fprintf(&b, "+%s", strings.Join(v.local, "."))
	}
	return b.String()
}

// preReleaseSpellings maps every accepted spelling to its canonical tag.
// Longer spellings that share a prefix with a shorter one must be tried
// first.
var preReleaseSpellings = []struct {
	text string
	tag  preTag
}{
	{"alpha", preAlpha},
	{"a", preAlpha},
	{"beta", preBeta},
	{"b", preBeta},
	{"preview", preRC},
	{"pre", preRC},
	{"rc", preRC},
	{"c", preRC},
}

var postReleaseSpellings = []string{"post", "rev", "r"}

// Parse parses s as a PEP 440 version string.
func Parse(s string) (Version, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("pep440: empty version")
	}
	for _, r := range s {
		if r > 0x7F {
			return Version{}, fmt.Errorf("pep440: invalid character %q in %q", r, raw)
		}
	}
	v := Version{raw: raw}

	// Optional epoch: "N!".
	if i := strings.IndexByte(s, '!'); i > 0 {
		isEpoch := true
		for _, c := range s[:i] {
			if c < '0' || c > '9' {
				isEpoch = false
				break
			}
		}
		if isEpoch {
			epoch, err := strconv.Atoi(s[:i])
			if err != nil {
				return Version{}, fmt.Errorf("pep440: invalid epoch in %q: %w", raw, err)
			}
			v.epoch = epoch
			s = s[i+1:]
		}
	}

	// Optional leading "v".
	if len(s) > 0 && (s[0] == 'v' || s[0] == 'V') {
		s = s[1:]
	}

	// Release segments: N(.N)*
	var i int
	for i = 0; i < len(s) && isDigit(s[i]); {
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		n, err := strconv.Atoi(s[start:i])
		if err != nil {
			return Version{}, fmt.Errorf("pep440: invalid release segment in %q: %w", raw, err)
		}
		v.release = append(v.release, n)
		if i < len(s) && s[i] == '.' && i+1 < len(s) && isDigit(s[i+1]) {
			i++
			continue
		}
		break
	}
	if len(v.release) == 0 {
		return Version{}, fmt.Errorf("pep440: no release segment in %q", raw)
	}
	s = s[i:]

	var err error
	s, err = v.parsePre(s)
	if err != nil {
		return Version{}, fmt.Errorf("pep440: %w in %q", err, raw)
	}
	s, err = v.parsePost(s)
	if err != nil {
		return Version{}, fmt.Errorf("pep440: %w in %q", err, raw)
	}
	s, err = v.parseDev(s)
	if err != nil {
		return Version{}, fmt.Errorf("pep440: %w in %q", err, raw)
	}
	s, err = v.parseLocal(s)
	if err != nil {
		return Version{}, fmt.Errorf("pep440: %w in %q", err, raw)
	}
	if s != "" {
		return Version{}, fmt.Errorf("pep440: unparsed trailing text %q in %q", s, raw)
	}
	return v, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// trimSeparator removes a single leading '.', '-' or '_', if present.
func trimSeparator(s string) string {
	if len(s) > 0 {
		switch s[0] {
		case '.', '-', '_':
			return s[1:]
		}
	}
	return s
}

func hasFoldedPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if s[i]|0x20 != prefix[i] {
			return false
		}
	}
	return true
}

func readNumber(s string) (int, string) {
	s = trimSeparator(s)
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 0 {
		return 0, s
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

func (v *Version) parsePre(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	trimmed := trimSeparator(s)
	for _, cand := range preReleaseSpellings {
		if hasFoldedPrefix(trimmed, cand.text) {
			v.pre = cand.tag
			v.preNum, s = readNumber(trimmed[len(cand.text):])
			return s, nil
		}
	}
	return s, nil
}

func (v *Version) parsePost(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	dashForm := s[0] == '-'
	trimmed := trimSeparator(s)
	matched := 0
	for _, p := range postReleaseSpellings {
		if hasFoldedPrefix(trimmed, p) {
			matched = len(p)
			break
		}
	}
	if matched == 0 {
		// A bare "-N" also means post-release.
		if !dashForm || len(trimmed) == 0 || !isDigit(trimmed[0]) {
			return s, nil
		}
	}
	v.hasPost = true
	v.postNum, s = readNumber(trimmed[matched:])
	return s, nil
}

func (v *Version) parseDev(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	trimmed := trimSeparator(s)
	if !hasFoldedPrefix(trimmed, "dev") {
		return s, nil
	}
	v.hasDev = true
	v.devNum, s = readNumber(trimmed[3:])
	return s, nil
}

func (v *Version) parseLocal(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	if s[0] != '+' {
		return s, fmt.Errorf("invalid text %q", s)
	}
	label := s[1:]
	if label == "" {
		return s, fmt.Errorf("empty local version label")
	}
	label = strings.ReplaceAll(label, "-", ".")
	label = strings.ReplaceAll(label, "_", ".")
	for _, seg := range strings.Split(label, ".") {
		if seg == "" {
			return s, fmt.Errorf("empty local version segment")
		}
		for _, c := range seg {
			if !isAlphanumericASCII(c) {
				return s, fmt.Errorf("invalid local version segment %q", seg)
			}
		}
		v.local = append(v.local, strings.ToLower(seg))
	}
	return "", nil
}

func isAlphanumericASCII(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// rank orders the possible "shapes" of a version's tail, from lowest to
// highest: dev < alpha < beta < rc < (no pre/post) < local < post. This
// mirrors deps.dev/util/semver/pep440.go's pep440.rank.
type rank int

const (
	rankDev rank = iota
	rankAlpha
	rankBeta
	rankRC
	rankFinal
	rankLocal
	rankPost
)

func (v Version) rank() rank {
	switch v.pre {
	case preAlpha:
		return rankAlpha
	case preBeta:
		return rankBeta
	case preRC:
		return rankRC
	}
	if v.hasPost {
		return rankPost
	}
	if v.hasDev {
		return rankDev
	}
	if len(v.local) > 0 {
		return rankLocal
	}
	return rankFinal
}

// Compare returns -1, 0 or 1 depending on whether v orders before, the same
// as, or after w.
func Compare(v, w Version) int {
	if v.epoch != w.epoch {
		return sgn(v.epoch, w.epoch)
	}
	n := len(v.release)
	if len(w.release) > n {
		n = len(w.release)
	}
	for i := 0; i < n; i++ {
		if s := sgn(releaseAt(v, i), releaseAt(w, i)); s != 0 {
			return s
		}
	}

	vr, wr := v.rank(), w.rank()
	if vr != wr {
		return sgn(int(vr), int(wr))
	}

	switch vr {
	case rankAlpha, rankBeta, rankRC:
		if s := sgn(v.preNum, w.preNum); s != 0 {
			return s
		}
		fallthrough
	case rankLocal:
		if s := compareLocal(v.local, w.local); s != 0 {
			return s
		}
		fallthrough
	case rankPost:
		if s := sgn(v.postNum, w.postNum); s != 0 {
			return s
		}
	}

	if v.hasDev || w.hasDev {
		if v.hasDev != w.hasDev {
			if v.hasDev {
				return -1
			}
			return 1
		}
		return sgn(v.devNum, w.devNum)
	}
	return 0
}

// Less reports whether v orders strictly before w.
func (v Version) Less(w Version) bool { return Compare(v, w) < 0 }

// Equal reports whether v and w compare equal under PEP 440 ordering.
func (v Version) Equal(w Version) bool { return Compare(v, w) == 0 }

func releaseAt(v Version, i int) int {
	if i < len(v.release) {
		return v.release[i]
	}
	return 0
}

func compareLocal(a, b []string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var ae, be string
		if i < len(a) {
			ae = a[i]
		}
		if i < len(b) {
			be = b[i]
		}
		// A missing segment sorts lower than any present segment.
		if i >= len(a) {
			return -1
		}
		if i >= len(b) {
			return 1
		}
		if s := compareLocalSegment(ae, be); s != 0 {
			return s
		}
	}
	return 0
}

func compareLocalSegment(a, b string) int {
	if a == b {
		return 0
	}
	aNum, aIsNum := isAllDigits(a)
	bNum, bIsNum := isAllDigits(b)
	if aIsNum != bIsNum {
		// Numeric segments sort higher than alphanumeric ones.
		if aIsNum {
			return 1
		}
		return -1
	}
	if aIsNum {
		return sgnU64(aNum, bNum)
	}
	if a < b {
		return -1
	}
	return 1
}

func isAllDigits(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sgn(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func sgnU64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
