package pypiname

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	for _, n := range []string{"Friendly-Bard", "friendly.bard", "FRIENDLY_BARD", "friendly--bard", ""} {
		once := Normalize(n)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize(%q) not idempotent: %q != %q", n, once, twice)
		}
	}
}

func TestNormalizeCollapses(t *testing.T) {
	tests := map[string]string{
		"Friendly-Bard":  "friendly-bard",
		"friendly.bard":  "friendly-bard",
		"FRIENDLY_BARD":  "friendly-bard",
		"friendly--bard": "friendly-bard",
		"friendly...bard": "friendly-bard",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
