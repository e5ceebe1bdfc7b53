package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const jsonIndexBody = `{
  "name": "foo",
  "files": [
    {
      "filename": "foo-1.0.0-py3-none-any.whl",
      "url": "https://example.com/foo-1.0.0-py3-none-any.whl",
      "hashes": {"sha256": "abc123"},
      "requires-python": ">=3.8",
      "core-metadata": {"sha256": "def456"}
    },
    {
      "filename": "foo-0.9.0.tar.gz",
      "url": "https://example.com/foo-0.9.0.tar.gz",
      "hashes": {"sha256": "111"},
      "yanked": "broken build"
    }
  ]
}`

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		w.Write([]byte(jsonIndexBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/simple/", 8)
	p, err := c.Fetch(context.Background(), "Foo")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Files) != 2 {
		t.Fatalf("got %+v", p)
	}
	if !p.Files[0].HasMetadataHash {
		t.Error("expected metadata hash presence on first file")
	}
	if !p.Files[1].Yanked || p.Files[1].YankedReason != "broken build" {
		t.Errorf("got %+v", p.Files[1])
	}
}

const htmlIndexBody = `<!DOCTYPE html>
<html><body>
<a href="foo-1.0.0-py3-none-any.whl#sha256=abc123" data-requires-python="&gt;=3.8">foo-1.0.0-py3-none-any.whl</a>
<a href="foo-0.9.0.tar.gz#sha256=111" data-yanked="old">foo-0.9.0.tar.gz</a>
</body></html>`

func TestFetchHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(htmlIndexBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/simple", 8)
	p, err := c.Fetch(context.Background(), "foo")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Files) != 2 {
		t.Fatalf("got %+v", p)
	}
	if p.Files[0].Hashes["sha256"] != "abc123" {
		t.Errorf("got %+v", p.Files[0])
	}
	if !p.Files[1].Yanked {
		t.Error("expected yanked")
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/simple/", 8)
	p, err := c.Fetch(context.Background(), "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Files) != 0 {
		t.Fatalf("got %+v", p)
	}
}

func TestVerifyHash(t *testing.T) {
	content := []byte("hello, world")
	hashes := map[string]string{"sha256": "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"}
	if err := VerifyHash(content, hashes); err == nil {
		t.Fatal("expected mismatch")
	}
	if err := VerifyHash(content, nil); err != nil {
		t.Fatal(err)
	}
}
