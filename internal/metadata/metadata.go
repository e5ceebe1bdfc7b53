// Package metadata implements the Core Metadata Decoder (spec.md §4.2): it
// turns an RFC 822-style PKG-INFO or METADATA block into a structured
// CoreMetadata value, and exposes the PEP 643 reliability gate used to decide
// whether a source distribution's declared metadata can be trusted without
// running its build backend.
//
// Grounded on deps.dev/util/pypi/metadata.go's ParseMetadata, which parses
// the same RFC 822 key/value block via net/mail.
package metadata

import (
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"

	"github.com/tdejager/rip/internal/pep440"
	"github.com/tdejager/rip/internal/pypiname"
	"github.com/tdejager/rip/internal/requirement"
)

// CoreMetadata is the decoded subset of PEP 566 core metadata fields that
// the resolver consumes.
type CoreMetadata struct {
	MetadataVersion string
	Name            string
	Version         pep440.Version
	RequiresPython  pep440.Specifiers
	RequiresDist    []requirement.Requirement
	ProvidesExtra   []string
}

// ParseError reports a structurally invalid or incomplete metadata block.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metadata: %s: %s", e.Field, e.Reason)
}

// Parse decodes an RFC 822-style core metadata block (a PKG-INFO file or a
// wheel's METADATA file).
func Parse(r io.Reader) (CoreMetadata, error) {
	msg, err := mail.ReadMessage(&trailingNewlineReader{r: r})
	if err != nil {
		return CoreMetadata{}, fmt.Errorf("metadata: malformed header block: %w", err)
	}
	h := msg.Header

	md := CoreMetadata{
		MetadataVersion: strings.TrimSpace(h.Get("Metadata-Version")),
	}
	if md.MetadataVersion == "" {
		return CoreMetadata{}, &ParseError{Field: "Metadata-Version", Reason: "missing required field"}
	}

	rawName := strings.TrimSpace(h.Get("Name"))
	if rawName == "" {
		return CoreMetadata{}, &ParseError{Field: "Name", Reason: "missing required field"}
	}
	md.Name = pypiname.Normalize(rawName)

	rawVersion := strings.TrimSpace(h.Get("Version"))
	if rawVersion == "" {
		return CoreMetadata{}, &ParseError{Field: "Version", Reason: "missing required field"}
	}
	v, err := pep440.Parse(rawVersion)
	if err != nil {
		return CoreMetadata{}, &ParseError{Field: "Version", Reason: err.Error()}
	}
	md.Version = v

	if rp := strings.TrimSpace(h.Get("Requires-Python")); rp != "" {
		specs, err := pep440.ParseSpecifiers(rp)
		if err != nil {
			return CoreMetadata{}, &ParseError{Field: "Requires-Python", Reason: err.Error()}
		}
		md.RequiresPython = specs
	}

	for _, raw := range h["Requires-Dist"] {
		raw = unfold(raw)
		req, err := requirement.Parse(raw)
		if err != nil {
			return CoreMetadata{}, &ParseError{Field: "Requires-Dist", Reason: fmt.Sprintf("%q: %v", raw, err)}
		}
		md.RequiresDist = append(md.RequiresDist, req)
	}

	for _, raw := range h["Provides-Extra"] {
		md.ProvidesExtra = append(md.ProvidesExtra, pypiname.NormalizeExtra(strings.TrimSpace(raw)))
	}

	return md, nil
}

// unfold collapses any runs of whitespace, including stray CR/LF characters,
// left in a header value into single spaces.
func unfold(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// metadataVersionAtLeast reports whether a "Metadata-Version" field value
// (e.g. "2.1") is >= (major, minor).
func metadataVersionAtLeast(value string, major, minor int) bool {
	parts := strings.SplitN(value, ".", 2)
	if len(parts) != 2 {
		return false
	}
	maj, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return false
	}
	if maj != major {
		return maj > major
	}
	return min >= minor
}

// Reliable implements the PEP 643 gate (spec.md §4.3): PKG-INFO declared by a
// source distribution is trustworthy, without invoking the build backend,
// only when its Metadata-Version is 2.2 or later.
func (md CoreMetadata) Reliable() bool {
	return metadataVersionAtLeast(md.MetadataVersion, 2, 2)
}

// trailingNewlineReader guarantees the input ends with a trailing newline so
// that net/mail.ReadMessage accepts a header block with no body and no
// blank-line separator, which PKG-INFO files in the wild sometimes omit.
type trailingNewlineReader struct {
	r    io.Reader
	done bool
	rest []byte
}

func (t *trailingNewlineReader) Read(p []byte) (int, error) {
	if len(t.rest) > 0 {
		n := copy(p, t.rest)
		t.rest = t.rest[n:]
		return n, nil
	}
	if t.done {
		return 0, io.EOF
	}
	n, err := t.r.Read(p)
	if err == io.EOF {
		t.done = true
		t.rest = []byte("\n\n")
		if n == 0 {
			return t.Read(p)
		}
		return n, nil
	}
	return n, err
}
