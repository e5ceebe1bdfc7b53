// Package sdist implements the Source Distribution Reader (spec.md §4.3): a
// lazy, single-pass scan of a source distribution archive that locates its
// PKG-INFO and optional pyproject.toml, applies the PEP 643 reliability gate,
// and extracts build-system requirements.
//
// Grounded on deps.dev/util/pypi/sdist.go's SdistMetadata/walkTarFiles
// structure, extended with pyproject.toml [build-system] extraction (spec.md
// supplemented feature, following original_source's build-frontend
// invocation contract) via github.com/pelletier/go-toml/v2.
package sdist

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/tdejager/rip/internal/metadata"
)

// UnsupportedFormatError is returned for archive formats the reader does not
// walk, e.g. zip-format sdists (spec.md §4.3 Non-goal).
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("sdist: unsupported archive format: %s", e.Filename)
}

// BuildSystem is the decoded pyproject.toml [build-system] table.
type BuildSystem struct {
	Requires     []string `toml:"requires"`
	BuildBackend string   `toml:"build-backend"`
	BackendPath  []string `toml:"backend-path"`
}

type pyprojectToml struct {
	BuildSystem *BuildSystem `toml:"build-system"`
}

// Metadata is the result of reading a source distribution: its decoded
// PKG-INFO, whether that declaration passes the PEP 643 reliability gate, and
// any pyproject.toml build-system table found alongside it.
type Metadata struct {
	Core        metadata.CoreMetadata
	Reliable    bool
	BuildSystem *BuildSystem
}

// Reader reads a single sdist archive. An archive is a single-pass stream
// (tar.gz is not seekable); Read serializes concurrent callers with a mutex
// rather than supporting concurrent extraction, per spec.md §5.
type Reader struct {
	open func() (io.ReadCloser, error)
	mu   sync.Mutex
}

// NewReader constructs a Reader whose archive contents are produced by open,
// called once per Read call so repeated reads re-fetch the stream from the
// start.
func NewReader(open func() (io.ReadCloser, error)) *Reader {
	return &Reader{open: open}
}

// Read walks filename's archive (format inferred from its extension) looking
// for a top-level PKG-INFO and pyproject.toml, decodes what it finds, and
// reports the PEP 643 reliability of the PKG-INFO declaration.
func (r *Reader) Read(filename string) (Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc, err := r.open()
	if err != nil {
		return Metadata{}, fmt.Errorf("sdist: %w", err)
	}
	defer rc.Close()

	var found Metadata
	var haveCore bool

	walk := func(name string, body io.Reader) error {
		_, rel, ok := strings.Cut(name, "/")
		if !ok {
			rel = name
		}
		switch rel {
		case "PKG-INFO":
			if haveCore {
				return fmt.Errorf("sdist: multiple top-level PKG-INFO files in %s", filename)
			}
			md, err := metadata.Parse(body)
			if err != nil {
				return fmt.Errorf("sdist: %s: %w", filename, err)
			}
			found.Core = md
			found.Reliable = md.Reliable()
			haveCore = true
		case "pyproject.toml":
			var doc pyprojectToml
			contents, err := io.ReadAll(body)
			if err != nil {
				return err
			}
			if err := toml.Unmarshal(contents, &doc); err != nil {
				// A malformed pyproject.toml does not invalidate the rest of
				// the archive scan; the build system simply stays unknown.
				return nil
			}
			found.BuildSystem = doc.BuildSystem
		}
		return nil
	}

	switch {
	case strings.HasSuffix(filename, ".tar.gz"), strings.HasSuffix(filename, ".tgz"):
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return Metadata{}, fmt.Errorf("sdist: %s: %w", filename, err)
		}
		defer gz.Close()
		if err := walkTar(gz, walk); err != nil {
			return Metadata{}, err
		}
	case strings.HasSuffix(filename, ".tar"):
		if err := walkTar(rc, walk); err != nil {
			return Metadata{}, err
		}
	case strings.HasSuffix(filename, ".zip"):
		return Metadata{}, &UnsupportedFormatError{Filename: filename}
	default:
		return Metadata{}, &UnsupportedFormatError{Filename: filename}
	}

	if !haveCore {
		return Metadata{}, fmt.Errorf("sdist: %s: no PKG-INFO found", filename)
	}
	return found, nil
}

func walkTar(r io.Reader, f func(name string, body io.Reader) error) error {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if h.Typeflag != tar.TypeReg {
			continue
		}
		if err := f(h.Name, tr); err != nil {
			return err
		}
	}
}
