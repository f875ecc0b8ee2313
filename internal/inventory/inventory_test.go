package inventory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencustomize/opencustomize/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestUserTemplateViewIndexesTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "spring", "pojo.mustache"), "USR")

	v, err := NewUserTemplateView(dir, "spring")
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	ok, err := v.HasTemplate("pojo.mustache")
	if err != nil || !ok {
		t.Fatalf("expected template present, got ok=%v err=%v", ok, err)
	}
	body, err := v.ReadTemplate("pojo.mustache")
	if err != nil || body.String() != "USR" {
		t.Fatalf("unexpected read: body=%q err=%v", body.String(), err)
	}
}

func TestUserTemplateViewMissingRootIsNotError(t *testing.T) {
	dir := t.TempDir()
	v, err := NewUserTemplateView(filepath.Join(dir, "does-not-exist"), "spring")
	if err != nil {
		t.Fatalf("missing root should not be an error: %v", err)
	}
	names, _ := v.ListTemplates()
	if len(names) != 0 {
		t.Fatalf("expected empty view, got %v", names)
	}
}

func TestUserCustomizationViewStripsYamlSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "spring", "pojo.mustache.yaml"), "insertions: []")

	v, err := NewUserCustomizationView(dir, "spring")
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	names, err := v.ListCustomizations()
	if err != nil || len(names) != 1 || names[0] != "pojo.mustache" {
		t.Fatalf("unexpected names: %v err=%v", names, err)
	}
}

func TestInventoryApplicableOrderIntersects(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "spring", "pojo.mustache"), "USR")
	v, _ := NewUserTemplateView(dir, "spring")

	inv := New(map[domain.SourceKind]domain.SourceView{domain.UserTemplate: v}, nil, nil)
	configured := domain.AllSourceKinds()
	got := inv.ApplicableOrder(configured)
	if len(got) != 1 || got[0] != domain.UserTemplate {
		t.Fatalf("expected only UserTemplate present, got %v", got)
	}
}

type fakeGeneratorDefaults struct {
	bodies map[domain.TemplateName][]byte
}

func (f *fakeGeneratorDefaults) Has(_ domain.GeneratorId, name domain.TemplateName) (bool, error) {
	_, ok := f.bodies[name]
	return ok, nil
}

func (f *fakeGeneratorDefaults) Read(_ domain.GeneratorId, name domain.TemplateName) ([]byte, error) {
	b, ok := f.bodies[name]
	if !ok {
		return nil, errNotFound(name)
	}
	return b, nil
}

type fakeArchiveReader struct {
	entries  map[string][]byte
	metadata *domain.LibraryMetadata
}

func (f *fakeArchiveReader) List(prefix string) ([]string, error) {
	var out []string
	for name := range f.entries {
		if strings.HasPrefix(name, prefix+"/") {
			out = append(out, name)
		}
	}
	return out, nil
}

func (f *fakeArchiveReader) Read(entryPath string) ([]byte, error) {
	b, ok := f.entries[entryPath]
	if !ok {
		return nil, errNotFound(domain.TemplateName(entryPath))
	}
	return b, nil
}

func (f *fakeArchiveReader) ReadMetadata() (*domain.LibraryMetadata, error) {
	return f.metadata, nil
}

func (f *fakeArchiveReader) Close() error { return nil }

// TestBuildCollectsMetadataFromEveryLibrary guards against keying library
// descriptors by SourceKind: with more than one --library archive
// configured, every descriptor must survive discovery, not just the last
// one processed.
func TestBuildCollectsMetadataFromEveryLibrary(t *testing.T) {
	libs := []LibraryArchive{
		{
			Reader: &fakeArchiveReader{entries: map[string][]byte{
				"META-INF/openapi-templates/spring/a.mustache": []byte("A"),
			}},
			Metadata: &domain.LibraryMetadata{Name: "first-lib", Version: "1.0.0"},
		},
		{
			Reader: &fakeArchiveReader{entries: map[string][]byte{
				"META-INF/openapi-templates/spring/b.mustache": []byte("B"),
			}},
			Metadata: &domain.LibraryMetadata{Name: "second-lib", Version: "2.0.0"},
		},
	}

	inv, err := Build("spring", "", "", libs, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	all := inv.AllMetadata()
	if len(all) != 2 {
		t.Fatalf("expected 2 library descriptors, got %d: %v", len(all), all)
	}
	names := map[string]bool{}
	for _, m := range all {
		names[m.Name] = true
	}
	if !names["first-lib"] || !names["second-lib"] {
		t.Fatalf("expected both first-lib and second-lib, got %v", all)
	}
}

func TestGeneratorDefaultViewIsLazy(t *testing.T) {
	provider := &fakeGeneratorDefaults{bodies: map[domain.TemplateName][]byte{"pojo.mustache": []byte("DEFAULT")}}
	v := NewGeneratorDefaultView(provider, "spring")

	if _, err := v.ListTemplates(); err != domain.ErrNotEnumerable {
		t.Fatalf("expected ErrNotEnumerable, got %v", err)
	}
	ok, err := v.HasTemplate("pojo.mustache")
	if err != nil || !ok {
		t.Fatalf("expected true, got %v %v", ok, err)
	}
	body, err := v.ReadTemplate("pojo.mustache")
	if err != nil || body.String() != "DEFAULT" {
		t.Fatalf("unexpected: %q %v", body.String(), err)
	}
}
