package artifact

import "testing"

func TestParseWheel(t *testing.T) {
	n, err := Parse("numpy-1.26.0-cp311-cp311-manylinux_2_17_x86_64.manylinux2014_x86_64.whl", "numpy")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Wheel || n.Distribution != "numpy" {
		t.Fatalf("got %+v", n)
	}
	if n.Version.Canon() != "1.26.0" {
		t.Errorf("version = %q", n.Version.Canon())
	}
	if len(n.Tags) != 2 {
		t.Errorf("expected 2 expanded platform tags, got %d: %+v", len(n.Tags), n.Tags)
	}
}

func TestParseWheelWithBuildTag(t *testing.T) {
	n, err := Parse("foo-1.0-2-py3-none-any.whl", "foo")
	if err != nil {
		t.Fatal(err)
	}
	if !n.HasBuild || n.BuildTag.Num != 2 {
		t.Fatalf("got %+v", n)
	}
}

func TestParseWheelInvalid(t *testing.T) {
	if _, err := Parse("not-enough-parts.whl", "not"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseSDist(t *testing.T) {
	n, err := Parse("fake-flask-3.0.0.tar.gz", "fake-flask")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != SDist || n.SDistFormat != TarGz {
		t.Fatalf("got %+v", n)
	}
	if n.Version.Canon() != "3.0.0" {
		t.Errorf("version = %q", n.Version.Canon())
	}
}

func TestParseUnknownFormat(t *testing.T) {
	_, err := Parse("package-1.0.rar", "package")
	pe, ok := err.(*ParseError)
	if !ok || pe.Reason != ReasonUnknownFormat {
		t.Fatalf("got %v", err)
	}
}
