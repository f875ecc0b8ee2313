package workdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencustomize/opencustomize/internal/domain"
)

func TestBuildWritesOrigOnlyWhenModified(t *testing.T) {
	root := t.TempDir()
	b := New(root)

	resolved := map[domain.TemplateName]domain.ResolvedTemplate{
		"pojo.mustache": {
			Name:     "pojo.mustache",
			Body:     domain.NewTemplateBody([]byte("// HDR\npublic class X {}")),
			BaseBody: domain.NewTemplateBody([]byte("public class X {}")),
			Modified: true,
		},
		"untouched.mustache": {
			Name:     "untouched.mustache",
			Body:     domain.NewTemplateBody([]byte("SAME")),
			BaseBody: domain.NewTemplateBody([]byte("SAME")),
			Modified: false,
		},
	}

	dir, err := b.Build(context.Background(), "spring", "petstore", resolved, "hash1", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "pojo.mustache"))
	if err != nil || string(got) != "// HDR\npublic class X {}" {
		t.Fatalf("unexpected template content: %q err=%v", got, err)
	}
	origBody, err := os.ReadFile(filepath.Join(dir, "orig", "spring", "pojo.mustache.orig"))
	if err != nil || string(origBody) != "public class X {}" {
		t.Fatalf("unexpected orig content: %q err=%v", origBody, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "orig", "spring", "untouched.mustache.orig")); !os.IsNotExist(err) {
		t.Fatal("expected no .orig for unmodified template")
	}
	if _, err := os.Stat(filepath.Join(dir, MarkerFileName)); err != nil {
		t.Fatalf("expected marker file: %v", err)
	}
}

func TestBuildIsNoOpWhenMarkerMatches(t *testing.T) {
	root := t.TempDir()
	b := New(root)
	resolved := map[domain.TemplateName]domain.ResolvedTemplate{
		"pojo.mustache": {Name: "pojo.mustache", Body: domain.NewTemplateBody([]byte("V1"))},
	}
	dir, err := b.Build(context.Background(), "spring", "petstore", resolved, "hash1", nil)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	// Simulate the caller passing a changed resolved set but an unchanged
	// manifest hash: the builder must not touch the directory at all.
	resolved["pojo.mustache"] = domain.ResolvedTemplate{Name: "pojo.mustache", Body: domain.NewTemplateBody([]byte("V2"))}
	if _, err := b.Build(context.Background(), "spring", "petstore", resolved, "hash1", nil); err != nil {
		t.Fatalf("second build: %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(dir, "pojo.mustache"))
	if string(got) != "V1" {
		t.Fatalf("expected no-op rebuild to leave content untouched, got %q", got)
	}
}

func TestDependencyDiscoveryTransitive(t *testing.T) {
	root := t.TempDir()
	b := New(root)

	resolved := map[domain.TemplateName]domain.ResolvedTemplate{
		"pojo.mustache": {Name: "pojo.mustache", Body: domain.NewTemplateBody([]byte("{{>a}}"))},
	}
	bodies := map[domain.TemplateName]string{
		"a": "{{>b}}",
		"b": "leaf",
	}
	fetch := func(name domain.TemplateName) (domain.TemplateBody, domain.SourceKind, error) {
		body, ok := bodies[name]
		if !ok {
			t.Fatalf("unexpected fetch for %s", name)
		}
		return domain.NewTemplateBody([]byte(body)), domain.LibraryTemplate, nil
	}

	dir, err := b.Build(context.Background(), "spring", "petstore", resolved, "hash1", fetch)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, name := range []string{"pojo.mustache", "a", "b"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to be written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "orig", "spring", "a.orig")); !os.IsNotExist(err) {
		t.Fatal("dependency-only templates must never get a .orig")
	}
}
