package sdist

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"
)

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Size: int64(len(content)), Mode: 0644, Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const pkgInfo = `Metadata-Version: 2.2
Name: fake-flask
Version: 3.0.0
Requires-Dist: click>=8.1.3

`

func TestReadTarGz(t *testing.T) {
	data := buildTarGz(t, map[string]string{
		"fake_flask-3.0.0/PKG-INFO": pkgInfo,
		"fake_flask-3.0.0/pyproject.toml": "[build-system]\nrequires = [\"setuptools\"]\nbuild-backend = \"setuptools.build_meta\"\n",
	})
	r := NewReader(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
	md, err := r.Read("fake-flask-3.0.0.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if md.Core.Name != "fake-flask" || !md.Reliable {
		t.Fatalf("got %+v", md)
	}
	if md.BuildSystem == nil || md.BuildSystem.BuildBackend != "setuptools.build_meta" {
		t.Fatalf("build system = %+v", md.BuildSystem)
	}
}

func TestReadMissingPKGInfo(t *testing.T) {
	data := buildTarGz(t, map[string]string{"foo-1.0/setup.py": "print('hi')"})
	r := NewReader(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
	if _, err := r.Read("foo-1.0.tar.gz"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadZipUnsupported(t *testing.T) {
	r := NewReader(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	})
	_, err := r.Read("foo-1.0.zip")
	if _, ok := err.(*UnsupportedFormatError); !ok {
		t.Fatalf("got %v", err)
	}
}
