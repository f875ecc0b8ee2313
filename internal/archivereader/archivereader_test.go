package archivereader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFixtureJar(t *testing.T, entries map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	jarPath := filepath.Join(dir, "fixture.jar")
	f, err := os.Create(jarPath)
	if err != nil {
		t.Fatalf("create jar: %v", err)
	}
	zw := zip.NewWriter(f)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
	return jarPath
}

func TestListAndRead(t *testing.T) {
	jarPath := writeFixtureJar(t, map[string]string{
		"META-INF/openapi-templates/spring/pojo.mustache":      "LIB BODY",
		"META-INF/openapi-customizations/spring/pojo.yaml":     "insertions: []",
		"META-INF/openapi-templates/spring/nested/other.mustache": "NESTED",
	})

	r, err := Open(jarPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	entries, err := r.List("META-INF/openapi-templates/spring")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), entries)
	}

	body, err := r.Read("META-INF/openapi-templates/spring/pojo.mustache")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "LIB BODY" {
		t.Fatalf("unexpected body: %q", body)
	}

	if _, err := r.Read("does/not/exist"); err == nil {
		t.Fatal("expected error reading missing entry")
	}
}

func TestReadMetadataMissingIsNotError(t *testing.T) {
	jarPath := writeFixtureJar(t, map[string]string{
		"META-INF/openapi-templates/spring/pojo.mustache": "BODY",
	})
	r, err := Open(jarPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	meta, err := r.ReadMetadata()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta != nil {
		t.Fatalf("expected nil metadata, got %+v", meta)
	}
}

func TestReadMetadataPresent(t *testing.T) {
	jarPath := writeFixtureJar(t, map[string]string{
		"META-INF/openapi-library.yaml": "name: acme-lib\nversion: 1.2.3\nsupportedGenerators: [spring]\n",
	})
	r, err := Open(jarPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	meta, err := r.ReadMetadata()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta == nil || meta.Name != "acme-lib" || meta.Version != "1.2.3" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestReadMetadataMalformedIsFatal(t *testing.T) {
	jarPath := writeFixtureJar(t, map[string]string{
		"META-INF/openapi-library.yaml": "name: [unterminated\n",
	})
	r, err := Open(jarPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadMetadata(); err == nil {
		t.Fatal("expected error for malformed metadata")
	}
}
