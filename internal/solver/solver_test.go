package solver

import (
	"testing"

	"github.com/tdejager/rip/internal/pep440"
)

func mustSpecs(t *testing.T, s string) pep440.Specifiers {
	t.Helper()
	specs, err := pep440.ParseSpecifiers(s)
	if err != nil {
		t.Fatal(err)
	}
	return specs
}

func mustVersion(t *testing.T, s string) pep440.Version {
	t.Helper()
	v, err := pep440.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestSolveSimpleChain(t *testing.T) {
	p := NewPool()
	foo := p.InternName("foo")
	bar := p.InternName("bar")

	foo1 := p.AddCandidate(foo, mustVersion(t, "1.0.0"))
	bar1 := p.AddCandidate(bar, mustVersion(t, "1.0.0"))
	bar2 := p.AddCandidate(bar, mustVersion(t, "2.0.0"))
	_ = bar1

	barDep := p.InternVersionSet(bar, mustSpecs(t, ">=2.0.0"))
	p.SetDependencies(foo1, []VersionSetID{barDep})

	root := p.InternVersionSet(foo, nil)
	sol, err := p.Solve([]VersionSetID{root})
	if err != nil {
		t.Fatal(err)
	}
	if sol[foo] != foo1 {
		t.Errorf("foo assignment = %v", sol[foo])
	}
	if sol[bar] != bar2 {
		t.Errorf("bar assignment = %v, want highest satisfying candidate", sol[bar])
	}
}

func TestSolveConflict(t *testing.T) {
	p := NewPool()
	foo := p.InternName("foo")
	bar := p.InternName("bar")

	bar1 := p.AddCandidate(bar, mustVersion(t, "1.0.0"))
	_ = bar1

	rootFoo := p.InternVersionSet(foo, nil)
	rootBar := p.InternVersionSet(bar, mustSpecs(t, ">=2.0.0"))

	_, err := p.Solve([]VersionSetID{rootFoo, rootBar})
	if err == nil {
		t.Fatal("expected conflict: foo has no candidates at all")
	}
}

func TestSolveBacktracks(t *testing.T) {
	p := NewPool()
	foo := p.InternName("foo")
	bar := p.InternName("bar")

	foo2 := p.AddCandidate(foo, mustVersion(t, "2.0.0"))
	foo1 := p.AddCandidate(foo, mustVersion(t, "1.0.0"))
	p.AddCandidate(bar, mustVersion(t, "1.0.0"))

	// foo 2.0.0 requires bar>=2.0.0 (unsatisfiable), foo 1.0.0 requires bar>=1.0.0.
	badDep := p.InternVersionSet(bar, mustSpecs(t, ">=2.0.0"))
	goodDep := p.InternVersionSet(bar, mustSpecs(t, ">=1.0.0"))
	p.SetDependencies(foo2, []VersionSetID{badDep})
	p.SetDependencies(foo1, []VersionSetID{goodDep})

	root := p.InternVersionSet(foo, nil)
	sol, err := p.Solve([]VersionSetID{root})
	if err != nil {
		t.Fatal(err)
	}
	if sol[foo] != foo1 {
		t.Errorf("expected to backtrack to foo 1.0.0, got %v", sol[foo])
	}
}
