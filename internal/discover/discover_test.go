package discover

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tdejager/rip/internal/index"
	"github.com/tdejager/rip/internal/requirement"
)

const fooMetadata = `Metadata-Version: 2.1
Name: foo
Version: 1.0.0
Requires-Dist: bar>=1.0.0

`

const barMetadata = `Metadata-Version: 2.1
Name: bar
Version: 1.5.0

`

func TestDiscoverSimpleChain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/foo/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		fmt.Fprint(w, `{"name":"foo","files":[
			{"filename":"foo-1.0.0-py3-none-any.whl","url":"`+testServerURL()+`/files/foo-1.0.0-py3-none-any.whl"}
		]}`)
	})
	mux.HandleFunc("/simple/bar/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		fmt.Fprint(w, `{"name":"bar","files":[
			{"filename":"bar-1.5.0-py3-none-any.whl","url":"`+testServerURL()+`/files/bar-1.5.0-py3-none-any.whl"}
		]}`)
	})

	var srv *httptest.Server
	mux.HandleFunc("/files/foo-1.0.0-py3-none-any.whl", func(w http.ResponseWriter, r *http.Request) {
		writeWheel(w, "foo-1.0.0.dist-info/METADATA", fooMetadata)
	})
	mux.HandleFunc("/files/bar-1.5.0-py3-none-any.whl", func(w http.ResponseWriter, r *http.Request) {
		writeWheel(w, "bar-1.5.0.dist-info/METADATA", barMetadata)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()
	setTestServerURL(srv.URL)

	client := index.NewClient(srv.URL+"/simple/", 8)
	eng := &Engine{Index: client, Env: DefaultEnvironment()}

	root, err := requirement.Parse("foo")
	if err != nil {
		t.Fatal(err)
	}
	pool, roots, err := eng.Discover(context.Background(), []requirement.Requirement{root})
	if err != nil {
		t.Fatal(err)
	}
	sol, err := pool.Solve(roots)
	if err != nil {
		t.Fatal(err)
	}
	if len(sol) != 2 {
		t.Fatalf("expected 2 resolved packages, got %d: %+v", len(sol), sol)
	}
}

func TestDiscoverArtifactFetchFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/foo/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		fmt.Fprint(w, `{"name":"foo","files":[
			{"filename":"foo-1.0.0-py3-none-any.whl","url":"`+testServerURL()+`/files/broken.whl"}
		]}`)
	})
	mux.HandleFunc("/files/broken.whl", func(w http.ResponseWriter, r *http.Request) {
		// The index promised this artifact existed; simulate it being
		// unreachable, distinct from the artifact-list fetch itself failing.
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	setTestServerURL(srv.URL)

	client := index.NewClient(srv.URL+"/simple/", 8)
	eng := &Engine{Index: client, Env: DefaultEnvironment()}

	root, err := requirement.Parse("foo")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := eng.Discover(context.Background(), []requirement.Requirement{root}); err == nil {
		t.Fatal("expected a fatal error from a failed per-artifact fetch, got nil")
	}
}

// testServerURL lets handlers reference the httptest server's own base URL
// before it has started (Go assigns the URL only after NewServer returns).
var currentTestServerURL string

func testServerURL() string   { return currentTestServerURL }
func setTestServerURL(u string) { currentTestServerURL = u }

func writeWheel(w http.ResponseWriter, metadataPath, content string) {
	zw := zip.NewWriter(w)
	f, _ := zw.Create(metadataPath)
	f.Write([]byte(content))
	zw.Close()
}
