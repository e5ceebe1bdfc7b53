// Package discover implements the Metadata Discovery Engine (spec.md §4.6):
// a breadth-first crawl, over package *names* rather than individual
// versions, that fetches every stable release's metadata for each name
// encountered and interns the result into a solver.Pool ready to be solved.
//
// Grounded on original_source's rip::main::recursively_get_metadata (the
// queue/seen-by-name loop, the fixed environment marker defaults, dropping
// pre/dev releases and yanked artifacts, and eagerly fetching metadata for
// every remaining candidate of a newly-seen name before enqueuing its
// dependencies).
package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/tdejager/rip/internal/artifact"
	"github.com/tdejager/rip/internal/index"
	"github.com/tdejager/rip/internal/markers"
	"github.com/tdejager/rip/internal/metadata"
	"github.com/tdejager/rip/internal/pep440"
	"github.com/tdejager/rip/internal/pyversion"
	"github.com/tdejager/rip/internal/requirement"
	"github.com/tdejager/rip/internal/sdist"
	"github.com/tdejager/rip/internal/solver"
	"github.com/tdejager/rip/internal/wheel"
)

// DefaultEnvironment returns the set of environment marker values used when
// the caller supplies no overrides: every key present, mostly empty, except
// python_version/python_full_version which are populated from the system
// Python interpreter pyversion discovers. If no interpreter can be found or
// its version can't be parsed, it falls back to the same modern default
// original_source's CLI hard-codes.
func DefaultEnvironment() markers.Environment {
	env := markers.Environment{
		"os_name":                        "",
		"sys_platform":                   "",
		"platform_machine":               "",
		"platform_python_implementation": "",
		"platform_release":               "",
		"platform_system":                "",
		"platform_version":               "",
		"python_version":                 "3.9",
		"python_full_version":            "",
		"implementation_name":            "",
		"implementation_version":         "",
		"extra":                          "",
	}
	if v, err := pyversion.FromSystem(); err == nil {
		env["python_version"] = v.Short()
		env["python_full_version"] = v.String()
	}
	return env
}

// Engine crawls a package index, discovering metadata breadth-first.
type Engine struct {
	Index      *index.Client
	HTTPClient *http.Client
	Env        markers.Environment

	// OnSkip is called, if non-nil, whenever a name or version is skipped
	// (no wheels, all yanked, unreliable sdist, network error), so a caller
	// can surface diagnostics without the engine depending on a logger.
	OnSkip func(name, reason string)
}

type job struct {
	name   string
	extras []string
}

type known struct {
	solvableByVersion map[string]solver.SolvableID
	metadataByVersion map[string]metadata.CoreMetadata
	seenExtras        map[string]bool
}

// Discover crawls starting from roots, returning a populated Pool plus the
// interned root version-set ids ready to hand to solver.Pool.Solve.
func (e *Engine) Discover(ctx context.Context, roots []requirement.Requirement) (*solver.Pool, []solver.VersionSetID, error) {
	if e.HTTPClient == nil {
		e.HTTPClient = http.DefaultClient
	}
	pool := solver.NewPool()
	state := make(map[string]*known)

	var queue []job
	var rootIDs []solver.VersionSetID
	for _, r := range roots {
		nameID := pool.InternName(r.Name)
		rootIDs = append(rootIDs, pool.InternVersionSet(nameID, r.Specifiers))
		queue = append(queue, job{name: r.Name, extras: r.Extras})
	}

	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]

		st, alreadyKnown := state[j.name]
		if !alreadyKnown {
			st = &known{
				solvableByVersion: make(map[string]solver.SolvableID),
				metadataByVersion: make(map[string]metadata.CoreMetadata),
				seenExtras:        make(map[string]bool),
			}
			state[j.name] = st
		}

		var newExtras []string
		for _, extra := range j.extras {
			if !st.seenExtras[extra] {
				newExtras = append(newExtras, extra)
				st.seenExtras[extra] = true
			}
		}
		if alreadyKnown && len(newExtras) == 0 {
			continue
		}

		nameID := pool.InternName(j.name)

		if !alreadyKnown {
			if err := e.fetchName(ctx, j.name, nameID, st, pool, &queue); err != nil {
				var fe *fetchError
				if errors.As(err, &fe) {
					return nil, nil, fmt.Errorf("discover: %s: %w", j.name, err)
				}
				if e.OnSkip != nil {
					e.OnSkip(j.name, err.Error())
				}
				continue
			}
			continue
		}

		// Re-evaluate every already-discovered version's requirements for
		// any newly-activated extras (covers extras requested deeper in the
		// graph than the root requirements).
		for version, md := range st.metadataByVersion {
			sid := st.solvableByVersion[version]
			e.enqueueDependencies(md, newExtras, pool, sid, &queue)
		}
	}

	return pool, rootIDs, nil
}

func (e *Engine) fetchName(ctx context.Context, name string, nameID solver.NameID, st *known, pool *solver.Pool, queue *[]job) error {
	project, err := e.Index.Fetch(ctx, name)
	if err != nil {
		return fmt.Errorf("fetching index for %s: %w", name, err)
	}

	type versionFiles struct {
		version pep440.Version
		wheels  []index.File
		sdists  []index.File
	}
	byVersion := map[string]*versionFiles{}
	var order []string

	for _, f := range project.Files {
		n, err := artifact.Parse(f.Filename, name)
		if err != nil {
			continue
		}
		if n.Version.IsPrerelease() || n.Version.IsDevRelease() {
			continue
		}
		key := n.Version.Canon()
		vf, ok := byVersion[key]
		if !ok {
			vf = &versionFiles{version: n.Version}
			byVersion[key] = vf
			order = append(order, key)
		}
		if n.Kind == artifact.Wheel {
			vf.wheels = append(vf.wheels, f)
		} else {
			vf.sdists = append(vf.sdists, f)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		return pep440.Compare(byVersion[order[i]].version, byVersion[order[j]].version) > 0
	})

	found := 0
	for _, key := range order {
		vf := byVersion[key]
		md, ok, err := e.metadataForVersion(ctx, name, vf.wheels, vf.sdists)
		if err != nil {
			// The index promised this artifact existed: a fetch or
			// verification failure here is fatal, not a skippable
			// candidate, per spec.md §4.6(c) and §7.
			return err
		}
		if !ok {
			if e.OnSkip != nil {
				e.OnSkip(name, fmt.Sprintf("version %s: no non-yanked wheel or reliable sdist", key))
			}
			continue
		}
		sid := pool.AddCandidate(nameID, vf.version)
		st.solvableByVersion[key] = sid
		st.metadataByVersion[key] = md
		e.enqueueDependencies(md, extrasOf(st), pool, sid, queue)
		found++
	}
	if found == 0 {
		return fmt.Errorf("%s: no usable wheel or reliable sdist for any stable release", name)
	}
	return nil
}

func extrasOf(st *known) []string {
	out := make([]string, 0, len(st.seenExtras))
	for e := range st.seenExtras {
		out = append(out, e)
	}
	return out
}

// fetchError marks a per-artifact fetch or content-verification failure as
// fatal to the whole resolution (spec.md §4.6(c), §7): distinct from a
// by-policy skip (yanked, unreliable sdist, unsupported format), which only
// removes that one candidate, a fetchError means the index promised an
// artifact that could not be retrieved or verified, and the caller must
// abort rather than silently proceed without it.
type fetchError struct {
	err error
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

// metadataForVersion picks the first usable artifact's metadata for a
// version: a yanked or format-unsupported artifact is skipped in favor of
// the next one, but a fetch or verification failure on a non-yanked artifact
// is reported as a fatal *fetchError, since the index already promised that
// artifact existed.
func (e *Engine) metadataForVersion(ctx context.Context, name string, wheels, sdists []index.File) (metadata.CoreMetadata, bool, error) {
	for _, f := range wheels {
		if f.Yanked {
			continue
		}
		md, err := e.fetchWheelMetadata(ctx, f)
		if err != nil {
			return metadata.CoreMetadata{}, false, &fetchError{fmt.Errorf("%s: %s: %w", name, f.Filename, err)}
		}
		return md, true, nil
	}
	for _, f := range sdists {
		if f.Yanked {
			continue
		}
		md, reliable, err := e.fetchSdistMetadata(ctx, f)
		if err != nil {
			var unsupported *sdist.UnsupportedFormatError
			if errors.As(err, &unsupported) {
				continue
			}
			return metadata.CoreMetadata{}, false, &fetchError{fmt.Errorf("%s: %s: %w", name, f.Filename, err)}
		}
		if !reliable {
			continue
		}
		return md, true, nil
	}
	return metadata.CoreMetadata{}, false, nil
}

func (e *Engine) fetchWheelMetadata(ctx context.Context, f index.File) (metadata.CoreMetadata, error) {
	if f.HasMetadataHash {
		body, err := e.get(ctx, f.URL+".metadata")
		if err == nil {
			if want, ok := f.MetadataHashes["sha256"]; ok {
				if verr := wheel.VerifySHA256(body, want); verr != nil {
					return metadata.CoreMetadata{}, verr
				}
			}
			return wheel.ReadSideChannel(bytes.NewReader(body))
		}
	}
	body, err := e.get(ctx, f.URL)
	if err != nil {
		return metadata.CoreMetadata{}, err
	}
	if err := index.VerifyHash(body, f.Hashes); err != nil {
		return metadata.CoreMetadata{}, err
	}
	return wheel.ReadArchive(bytes.NewReader(body), int64(len(body)))
}

func (e *Engine) fetchSdistMetadata(ctx context.Context, f index.File) (metadata.CoreMetadata, bool, error) {
	r := sdist.NewReader(func() (io.ReadCloser, error) {
		body, err := e.get(ctx, f.URL)
		if err != nil {
			return nil, err
		}
		if err := index.VerifyHash(body, f.Hashes); err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	})
	md, err := r.Read(f.Filename)
	if err != nil {
		return metadata.CoreMetadata{}, false, err
	}
	return md.Core, md.Reliable, nil
}

func (e *Engine) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (e *Engine) enqueueDependencies(md metadata.CoreMetadata, activeExtras []string, pool *solver.Pool, sid solver.SolvableID, queue *[]job) {
	for _, req := range md.RequiresDist {
		if !req.MatchesExtras(e.Env, activeExtras) {
			continue
		}
		depID := pool.InternName(req.Name)
		vs := pool.InternVersionSet(depID, req.Specifiers)
		pool.AddDependency(sid, vs)
		*queue = append(*queue, job{name: req.Name, extras: req.Extras})
	}
}
