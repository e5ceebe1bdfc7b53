package pyversion

import "testing"

func TestFromOutput(t *testing.T) {
	v, err := FromOutput("Python 3.8.5")
	if err != nil {
		t.Fatal(err)
	}
	if v.Major != 3 || v.Minor != 8 || v.Patch != 5 {
		t.Fatalf("got %+v", v)
	}
	if v.Short() != "3.8" {
		t.Errorf("short = %q", v.Short())
	}
}

func TestFromOutputInvalid(t *testing.T) {
	for _, s := range []string{"Python 3.8", "CPython 3.8.5", "3.8.5", ""} {
		if _, err := FromOutput(s); err == nil {
			t.Errorf("FromOutput(%q): expected error", s)
		}
	}
}
