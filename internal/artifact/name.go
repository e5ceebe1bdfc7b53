// Package artifact implements the Artifact Name Parser (spec.md §4.1): it
// decomposes a downloadable file's name into distribution, version, kind and
// format.
//
// Grounded on deps.dev/util/pypi/wheel.go (ParseWheelName, PEP 425 tag
// expansion) and deps.dev/util/pypi/sdist.go (SdistVersion's greedy
// longest-prefix name match).
package artifact

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tdejager/rip/internal/pep440"
	"github.com/tdejager/rip/internal/pypiname"
)

// Format distinguishes the archive format of a source distribution.
type Format int

// The sdist archive formats recognized by the parser.
const (
	TarGz Format = iota
	Tar
	Zip
)

func (f Format) String() string {
	switch f {
	case TarGz:
		return "tar.gz"
	case Tar:
		return "tar"
	case Zip:
		return "zip"
	default:
		return "unknown"
	}
}

// BuildTag holds the optional numeric+string build tag of a wheel filename.
type BuildTag struct {
	Num int
	Tag string
}

// Tag is a PEP 425 compatibility tag (python, abi, platform).
type Tag struct {
	Python, ABI, Platform string
}

// Name is a parsed artifact filename. Exactly one of Wheel/SDist fields is
// meaningful, selected by Kind.
type Name struct {
	Kind Kind

	Distribution string
	Version      pep440.Version

	// Wheel-only fields.
	BuildTag BuildTag
	HasBuild bool
	Tags     []Tag

	// SDist-only field.
	SDistFormat Format
}

// Kind distinguishes a wheel from a source distribution.
type Kind int

const (
	Wheel Kind = iota
	SDist
)

// ParseError is returned when a filename cannot be decomposed.
type ParseError struct {
	Filename string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("artifact: cannot parse %q: %s", e.Filename, e.Reason)
}

// Sentinel reasons, exposed so callers can distinguish format detection from
// structural errors per spec.md §4.1.
const (
	ReasonUnknownFormat     = "unknown format"
	ReasonInvalidWheelName  = "invalid wheel filename"
	ReasonNameMismatch      = "distribution does not match expected package name"
)

// Parse decomposes filename into an artifact Name. expectedName is the
// normalized package name the artifact is supposed to belong to; it
// disambiguates distribution names containing '-' by taking the longest
// prefix whose normalization equals expectedName.
func Parse(filename, expectedName string) (Name, error) {
	switch {
	case strings.HasSuffix(filename, ".whl"):
		return parseWheel(filename)
	case strings.HasSuffix(filename, ".tar.gz"):
		return parseSDist(filename, expectedName, ".tar.gz", TarGz)
	case strings.HasSuffix(filename, ".tar"):
		return parseSDist(filename, expectedName, ".tar", Tar)
	case strings.HasSuffix(filename, ".zip"):
		return parseSDist(filename, expectedName, ".zip", Zip)
	default:
		return Name{}, &ParseError{Filename: filename, Reason: ReasonUnknownFormat}
	}
}

func parseWheel(filename string) (Name, error) {
	stem := strings.TrimSuffix(filename, ".whl")
	parts := strings.Split(stem, "-")
	if len(parts) != 5 && len(parts) != 6 {
		return Name{}, &ParseError{Filename: filename, Reason: ReasonInvalidWheelName}
	}
	v, err := pep440.Parse(parts[1])
	if err != nil {
		return Name{}, &ParseError{Filename: filename, Reason: "invalid version: " + err.Error()}
	}
	n := Name{
		Kind:         Wheel,
		Distribution: parts[0],
		Version:      v,
	}
	if len(parts) == 6 {
		buildTag := parts[2]
		split := strings.IndexFunc(buildTag, func(r rune) bool { return !unicode.IsDigit(r) })
		if split == 0 {
			return Name{}, &ParseError{Filename: filename, Reason: "build tag does not start with a digit"}
		}
		if split == -1 {
			split = len(buildTag)
		}
		num, err := strconv.Atoi(buildTag[:split])
		if err != nil {
			return Name{}, &ParseError{Filename: filename, Reason: "invalid build tag: " + err.Error()}
		}
		n.HasBuild = true
		n.BuildTag = BuildTag{Num: num, Tag: buildTag[split:]}
	}
	tail := Tag{
		Python:   parts[len(parts)-3],
		ABI:      parts[len(parts)-2],
		Platform: parts[len(parts)-1],
	}
	n.Tags = expandTag(tail)
	return n, nil
}

// expandTag expands compressed tag sets, e.g. "cp39.cp310-abi3-manylinux1_x86_64"
// (PEP 425's compressed tag set convention), generalized from
// util/pypi/wheel.go's expandPEP425Tag.
func expandTag(t Tag) []Tag {
	var out []Tag
	for _, py := range strings.Split(t.Python, ".") {
		for _, abi := range strings.Split(t.ABI, ".") {
			for _, plat := range strings.Split(t.Platform, ".") {
				out = append(out, Tag{Python: py, ABI: abi, Platform: plat})
			}
		}
	}
	return out
}

func parseSDist(filename, expectedName, ext string, format Format) (Name, error) {
	stem := strings.TrimSuffix(filename, ext)
	for i, r := range stem {
		if r != '-' {
			continue
		}
		if pypiname.Normalize(stem[:i]) != expectedName {
			continue
		}
		versionText := stem[i+1:]
		v, err := pep440.Parse(versionText)
		if err != nil {
			return Name{}, &ParseError{Filename: filename, Reason: "invalid version: " + err.Error()}
		}
		return Name{
			Kind:         SDist,
			Distribution: stem[:i],
			Version:      v,
			SDistFormat:  format,
		}, nil
	}
	return Name{}, &ParseError{Filename: filename, Reason: ReasonNameMismatch}
}
