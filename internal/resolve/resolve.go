// Package resolve ties the Package Database, Metadata Discovery Engine and
// Version Solver together into the single operation the CLI front-end
// drives: turn a list of root requirement strings into either a resolved
// environment or an explained conflict.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/tdejager/rip/internal/discover"
	"github.com/tdejager/rip/internal/index"
	"github.com/tdejager/rip/internal/markers"
	"github.com/tdejager/rip/internal/pep440"
	"github.com/tdejager/rip/internal/requirement"
	"github.com/tdejager/rip/internal/solver"
)

// Package is one resolved (name, version) pair in the output environment.
type Package struct {
	Name    string
	Version pep440.Version
}

// Result is the outcome of a resolution attempt.
type Result struct {
	// Roots echoes the root requirements as given, for display.
	Roots []requirement.Requirement
	// Packages is set on success, sorted by name.
	Packages []Package
	// Conflict is set when no resolution was possible.
	Conflict *solver.Conflict
}

// Options configures a resolution run.
type Options struct {
	IndexURL  string
	CacheSize int
	Env       markers.Environment
}

// Resolve parses specs as PEP 508 requirement strings and resolves them
// against the configured index. Per spec.md §6, an unsatisfiable
// resolution is reported in Result.Conflict, not returned as an error: only
// a malformed root spec or a fatal discovery failure (a per-artifact fetch
// or hash-verification failure) is an error. A name whose index listing
// cannot be fetched is skipped and has no candidates, so an unreachable
// index is reported as a Conflict, not as an error.
func Resolve(ctx context.Context, specs []string, opts Options) (*Result, error) {
	roots := make([]requirement.Requirement, 0, len(specs))
	for _, s := range specs {
		r, err := requirement.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("resolve: invalid requirement %q: %w", s, err)
		}
		roots = append(roots, r)
	}

	env := opts.Env
	if env == nil {
		env = discover.DefaultEnvironment()
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}

	client := index.NewClient(opts.IndexURL, cacheSize)
	engine := &discover.Engine{Index: client, Env: env}

	pool, rootIDs, err := engine.Discover(ctx, roots)
	if err != nil {
		return nil, fmt.Errorf("resolve: discovery failed: %w", err)
	}

	solution, err := pool.Solve(rootIDs)
	if err != nil {
		var conflict *solver.Conflict
		if ok := asConflict(err, &conflict); ok {
			return &Result{Roots: roots, Conflict: conflict}, nil
		}
		return nil, fmt.Errorf("resolve: %w", err)
	}

	packages := make([]Package, 0, len(solution))
	for nameID, solvableID := range solution {
		_, v := pool.SolvableOf(solvableID)
		packages = append(packages, Package{Name: pool.NameOf(nameID), Version: v})
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })

	return &Result{Roots: roots, Packages: packages}, nil
}

func asConflict(err error, out **solver.Conflict) bool {
	c, ok := err.(*solver.Conflict)
	if ok {
		*out = c
	}
	return ok
}
