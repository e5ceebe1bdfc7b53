package requirement

import "testing"

func TestParseBasic(t *testing.T) {
	r, err := Parse("requests[socks,security]>=2.20,<3; extra == 'net'")
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "requests" {
		t.Errorf("name = %q", r.Name)
	}
	if len(r.Extras) != 2 || r.Extras[0] != "socks" || r.Extras[1] != "security" {
		t.Errorf("extras = %v", r.Extras)
	}
	if len(r.Specifiers) != 2 {
		t.Errorf("specifiers = %v", r.Specifiers)
	}
	if r.Marker == nil {
		t.Fatal("expected marker")
	}
}

func TestParseNoConstraint(t *testing.T) {
	r, err := Parse("flask")
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "flask" || len(r.Specifiers) != 0 || r.Marker != nil {
		t.Fatalf("got %+v", r)
	}
}

func TestParseParenthesizedSpecifier(t *testing.T) {
	r, err := Parse("foo (>=1.0)")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Specifiers) != 1 {
		t.Fatalf("got %+v", r)
	}
}

func TestParseURL(t *testing.T) {
	r, err := Parse("foo @ https://example.com/foo-1.0.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if r.URL != "https://example.com/foo-1.0.tar.gz" {
		t.Fatalf("got %+v", r)
	}
}

func TestParseInvalidEmptyName(t *testing.T) {
	if _, err := Parse(">=1.0"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMatchesExtras(t *testing.T) {
	r, err := Parse("six; extra == 'test'")
	if err != nil {
		t.Fatal(err)
	}
	if r.MatchesExtras(nil, nil) {
		t.Error("expected false with no active extras")
	}
	if !r.MatchesExtras(nil, []string{"test"}) {
		t.Error("expected true when 'test' extra is active")
	}
}
