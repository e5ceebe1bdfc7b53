// Package solver implements the Version Solver (spec.md §4.7): given a pool
// of interned packages and their candidate versions, and the dependency
// edges between them, it finds one mutually-consistent version assignment
// satisfying a set of root requirements, or reports which packages could not
// be reconciled.
//
// Grounded structurally on original_source's rip::main (the Pool / NameId /
// SolvableId / VersionSetId / DependencyProvider contract built on the Rust
// rattler_libsolv_rs crate) and on deps.dev/util/resolve's interning
// conventions (api.go's PackageKey/VersionKey style). spec.md §1 treats the
// solver as an assumed external dependency; no such solver exists anywhere
// in this module's source corpus (verified against every go.mod in the
// example pack), so this package is this module's own concrete
// implementation of that assumed interface. It performs chronological
// backtracking with a single candidate list per package rather than true
// CDCL clause learning, which is enough to satisfy spec.md's correctness
// properties without implementing a general SAT engine from scratch.
package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tdejager/rip/internal/pep440"
)

// NameID identifies an interned package name.
type NameID int

// SolvableID identifies an interned (name, version) candidate.
type SolvableID int

// VersionSetID identifies an interned (name, specifier-set) constraint.
type VersionSetID int

type solvable struct {
	name    NameID
	version pep440.Version
}

type versionSet struct {
	name  NameID
	specs pep440.Specifiers
}

// Pool interns names, candidate solvables and version-set constraints so the
// solver can work with small integer ids instead of repeatedly comparing
// strings and version values.
type Pool struct {
	names   []string
	nameIDs map[string]NameID

	solvables []solvable
	// candidatesByName lists every solvable known for a name, in the order
	// AddCandidate was called.
	candidatesByName map[NameID][]SolvableID

	versionSets []versionSet

	// dependencies maps a solvable to the version sets it requires.
	dependencies map[SolvableID][]VersionSetID
}

// NewPool constructs an empty Pool.
func NewPool() *Pool {
	return &Pool{
		nameIDs:          make(map[string]NameID),
		candidatesByName: make(map[NameID][]SolvableID),
		dependencies:     make(map[SolvableID][]VersionSetID),
	}
}

// InternName interns a PEP 503 normalized package name.
func (p *Pool) InternName(name string) NameID {
	if id, ok := p.nameIDs[name]; ok {
		return id
	}
	id := NameID(len(p.names))
	p.names = append(p.names, name)
	p.nameIDs[name] = id
	return id
}

// NameOf returns the interned name string.
func (p *Pool) NameOf(id NameID) string { return p.names[id] }

// AddCandidate interns a (name, version) candidate and registers it as
// available for name.
func (p *Pool) AddCandidate(name NameID, version pep440.Version) SolvableID {
	id := SolvableID(len(p.solvables))
	p.solvables = append(p.solvables, solvable{name: name, version: version})
	p.candidatesByName[name] = append(p.candidatesByName[name], id)
	return id
}

// SolvableOf returns the name and version of a candidate.
func (p *Pool) SolvableOf(id SolvableID) (NameID, pep440.Version) {
	s := p.solvables[id]
	return s.name, s.version
}

// InternVersionSet interns a (name, specifier-set) constraint.
func (p *Pool) InternVersionSet(name NameID, specs pep440.Specifiers) VersionSetID {
	key := versionSet{name: name, specs: specs}
	// Specifiers holds slice-backed Versions, so dedup by rendered form
	// rather than relying on struct equality.
	for id, vs := range p.versionSets {
		if vs.name == name && vs.specs.String() == specs.String() {
			return VersionSetID(id)
		}
	}
	id := VersionSetID(len(p.versionSets))
	p.versionSets = append(p.versionSets, key)
	return id
}

// VersionSetOf returns the name and specifiers of a constraint.
func (p *Pool) VersionSetOf(id VersionSetID) (NameID, pep440.Specifiers) {
	vs := p.versionSets[id]
	return vs.name, vs.specs
}

// SetDependencies records the version-set requirements of a solvable.
func (p *Pool) SetDependencies(id SolvableID, deps []VersionSetID) {
	p.dependencies[id] = deps
}

// AddDependency appends a single version-set requirement to a solvable,
// used when discovery learns of a new dependency edge after a solvable's
// initial requirements were already recorded (e.g. a newly-activated
// extra's conditional dependencies).
func (p *Pool) AddDependency(id SolvableID, dep VersionSetID) {
	p.dependencies[id] = append(p.dependencies[id], dep)
}

// candidatesFor returns name's candidates sorted by descending PEP 440
// version, matching the provider's sort_candidates contract in the original
// solver interface this package is modeled on.
func (p *Pool) candidatesFor(name NameID) []SolvableID {
	cands := append([]SolvableID(nil), p.candidatesByName[name]...)
	sort.Slice(cands, func(i, j int) bool {
		return pep440.Compare(p.solvables[cands[i]].version, p.solvables[cands[j]].version) > 0
	})
	return cands
}

// Conflict explains an unsatisfiable resolution: the set of package names
// whose constraints could not be reconciled.
type Conflict struct {
	Names []string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("no resolution satisfies: %s", strings.Join(c.Names, ", "))
}

// Solution maps each selected name to its chosen candidate.
type Solution map[NameID]SolvableID

type pendingReq struct {
	vs VersionSetID
}

// Solve finds a version assignment satisfying every root requirement, or
// returns a Conflict naming the packages it could not reconcile.
func (p *Pool) Solve(roots []VersionSetID) (Solution, error) {
	state := Solution{}
	touched := map[NameID]bool{}
	pending := make([]pendingReq, len(roots))
	for i, r := range roots {
		pending[i] = pendingReq{vs: r}
	}
	if p.solve(pending, state, touched) {
		return state, nil
	}
	names := make([]string, 0, len(touched))
	for id := range touched {
		names = append(names, p.NameOf(id))
	}
	sort.Strings(names)
	return nil, &Conflict{Names: names}
}

func (p *Pool) solve(pending []pendingReq, assignment Solution, touched map[NameID]bool) bool {
	if len(pending) == 0 {
		return true
	}
	req := pending[0]
	rest := pending[1:]

	name, specs := p.VersionSetOf(req.vs)
	touched[name] = true

	if sid, ok := assignment[name]; ok {
		_, v := p.SolvableOf(sid)
		ok, err := specs.SatisfiedBy(v)
		if err != nil || !ok {
			return false
		}
		return p.solve(rest, assignment, touched)
	}

	for _, cand := range p.candidatesFor(name) {
		_, v := p.SolvableOf(cand)
		ok, err := specs.SatisfiedBy(v)
		if err != nil || !ok {
			continue
		}
		assignment[name] = cand
		next := append(append([]pendingReq(nil), rest...), depsOf(p, cand)...)
		if p.solve(next, assignment, touched) {
			return true
		}
		delete(assignment, name)
	}
	return false
}

func depsOf(p *Pool, id SolvableID) []pendingReq {
	deps := p.dependencies[id]
	out := make([]pendingReq, len(deps))
	for i, d := range deps {
		out[i] = pendingReq{vs: d}
	}
	return out
}
