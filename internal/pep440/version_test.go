package pep440

import "testing"

func TestParseAndCanon(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{"1.0a1", "1.0a1"},
		{"1.0alpha1", "1.0a1"},
		{"1.0.post1", "1.0.post1"},
		{"1.0-1", "1.0.post1"},
		{"1.0.dev0", "1.0.dev0"},
		{"1!1.0", "1!1.0"},
		{"1.0+abc.1", "1.0+abc.1"},
		{"1.0+ABC_1", "1.0+abc.1"},
		{"v1.0", "1.0"},
	}
	for _, tc := range tests {
		v, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tc.in, err)
			continue
		}
		if got := v.Canon(); got != tc.want {
			t.Errorf("Parse(%q).Canon() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.0..1", "1.0+", "1.0+_"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	// Ascending order per PEP 440: dev < a < b < rc < final < local < post.
	order := []string{
		"1.0.dev0",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0+local1",
		"1.0.post1",
	}
	var versions []Version
	for _, s := range order {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		versions = append(versions, v)
	}
	for i := 1; i < len(versions); i++ {
		if !versions[i-1].Less(versions[i]) {
			t.Errorf("expected %q < %q", order[i-1], order[i])
		}
	}
}

func TestCompareReleaseSegments(t *testing.T) {
	v1, _ := Parse("1.0")
	v2, _ := Parse("1.0.0")
	if !v1.Equal(v2) {
		t.Errorf("1.0 should equal 1.0.0 numerically")
	}
	v3, _ := Parse("2.0")
	if !v1.Less(v3) {
		t.Errorf("1.0 should be less than 2.0")
	}
}

func TestIsPrereleaseDev(t *testing.T) {
	v, _ := Parse("1.0a1")
	if !v.IsPrerelease() {
		t.Error("1.0a1 should be a prerelease")
	}
	v, _ = Parse("1.0.dev1")
	if !v.IsDevRelease() {
		t.Error("1.0.dev1 should be a dev release")
	}
	v, _ = Parse("1.0")
	if v.IsPrerelease() || v.IsDevRelease() {
		t.Error("1.0 should be neither prerelease nor dev")
	}
}
