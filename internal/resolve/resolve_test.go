package resolve

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const onlyFooMetadata = `Metadata-Version: 2.1
Name: foo
Version: 1.0.0

`

func TestResolveSinglePackage(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/simple/foo/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		fmt.Fprintf(w, `{"name":"foo","files":[{"filename":"foo-1.0.0-py3-none-any.whl","url":"%s/files/foo.whl"}]}`, base)
	})
	mux.HandleFunc("/files/foo.whl", func(w http.ResponseWriter, r *http.Request) {
		zw := zip.NewWriter(w)
		f, _ := zw.Create("foo-1.0.0.dist-info/METADATA")
		f.Write([]byte(onlyFooMetadata))
		zw.Close()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	res, err := Resolve(context.Background(), []string{"foo"}, Options{IndexURL: srv.URL + "/simple/"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Conflict != nil {
		t.Fatalf("unexpected conflict: %v", res.Conflict)
	}
	if len(res.Packages) != 1 || res.Packages[0].Name != "foo" {
		t.Fatalf("got %+v", res.Packages)
	}
}

func TestResolveInvalidRequirement(t *testing.T) {
	_, err := Resolve(context.Background(), []string{">=1.0"}, Options{})
	if err == nil {
		t.Fatal("expected error")
	}
}
