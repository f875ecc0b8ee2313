package preparation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencustomize/opencustomize/internal/domain"
	"github.com/opencustomize/opencustomize/internal/infrastructure/config"
	"github.com/opencustomize/opencustomize/internal/inventory"
)

type fakeIDGen struct{ n int }

func (f *fakeIDGen) NewID() (string, error) {
	f.n++
	return "doc-" + string(rune('a'+f.n)), nil
}

type fakeDefaults struct{ bodies map[domain.TemplateName]string }

func (f *fakeDefaults) Has(_ domain.GeneratorId, name domain.TemplateName) (bool, error) {
	_, ok := f.bodies[name]
	return ok, nil
}

func (f *fakeDefaults) Read(_ domain.GeneratorId, name domain.TemplateName) ([]byte, error) {
	return []byte(f.bodies[name]), nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.GeneratorName = "spring"
	return cfg
}

func TestPrepareOneWritesResolvedTemplate(t *testing.T) {
	userDir := t.TempDir()
	writeFile(t, filepath.Join(userDir, "spring", "pojo.mustache"), "USR")
	workRoot := t.TempDir()

	userTemplates, err := inventory.NewUserTemplateView(userDir, "spring")
	if err != nil {
		t.Fatal(err)
	}
	inv := inventory.New(map[domain.SourceKind]domain.SourceView{
		domain.UserTemplate: userTemplates,
	}, nil, nil)

	svc := New(&fakeIDGen{}, nil, workRoot, "")
	dir, err := svc.PrepareOne(context.Background(), "spring", "7.0.0", inv, testConfig(), "petstore", domain.EvaluationContext{})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "pojo.mustache"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "USR" {
		t.Fatalf("got %q", string(got))
	}
}

func TestPrepareOneIsNoOpOnSecondCall(t *testing.T) {
	userDir := t.TempDir()
	writeFile(t, filepath.Join(userDir, "spring", "pojo.mustache"), "USR")
	workRoot := t.TempDir()

	userTemplates, _ := inventory.NewUserTemplateView(userDir, "spring")
	inv := inventory.New(map[domain.SourceKind]domain.SourceView{
		domain.UserTemplate: userTemplates,
	}, nil, nil)

	svc := New(&fakeIDGen{}, nil, workRoot, "")
	dir1, err := svc.PrepareOne(context.Background(), "spring", "7.0.0", inv, testConfig(), "petstore", domain.EvaluationContext{})
	if err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	markerPath := filepath.Join(dir1, ".working-dir-cache")
	before, err := os.Stat(markerPath)
	if err != nil {
		t.Fatalf("marker missing: %v", err)
	}

	dir2, err := svc.PrepareOne(context.Background(), "spring", "7.0.0", inv, testConfig(), "petstore", domain.EvaluationContext{})
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if dir1 != dir2 {
		t.Fatalf("expected same working directory, got %q and %q", dir1, dir2)
	}
	after, err := os.Stat(markerPath)
	if err != nil {
		t.Fatalf("marker missing after rerun: %v", err)
	}
	if before.ModTime() != after.ModTime() {
		t.Fatal("marker was rewritten even though nothing changed")
	}
}

func TestPrepareAllRunsEverySpec(t *testing.T) {
	userDir := t.TempDir()
	writeFile(t, filepath.Join(userDir, "spring", "pojo.mustache"), "USR")
	workRoot := t.TempDir()

	userTemplates, _ := inventory.NewUserTemplateView(userDir, "spring")
	inv := inventory.New(map[domain.SourceKind]domain.SourceView{
		domain.UserTemplate: userTemplates,
	}, nil, nil)

	svc := New(&fakeIDGen{}, nil, workRoot, "")
	results := svc.PrepareAll(context.Background(), "spring", "7.0.0", inv, testConfig(), []string{"petstore", "billing"}, domain.EvaluationContext{})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for spec, res := range results {
		if res.Err != nil {
			t.Fatalf("spec %s failed: %v", spec, res.Err)
		}
	}
}

func TestPrepareOneDependencyDiscoveryUsesCache(t *testing.T) {
	userDir := t.TempDir()
	writeFile(t, filepath.Join(userDir, "spring", "pojo.mustache"), "MODEL {{> header.mustache }}")
	workRoot := t.TempDir()

	userTemplates, err := inventory.NewUserTemplateView(userDir, "spring")
	if err != nil {
		t.Fatal(err)
	}
	// header.mustache exists only as a generator default, so it is reached
	// solely through pojo.mustache's partial reference.
	defaults := &fakeDefaults{bodies: map[domain.TemplateName]string{
		"header.mustache": "// header",
	}}
	inv := inventory.New(map[domain.SourceKind]domain.SourceView{
		domain.UserTemplate:     userTemplates,
		domain.GeneratorDefault: inventory.NewGeneratorDefaultView(defaults, "spring"),
	}, nil, nil)

	svc := New(&fakeIDGen{}, nil, workRoot, "")
	dir, err := svc.PrepareOne(context.Background(), "spring", "7.0.0", inv, testConfig(), "petstore", domain.EvaluationContext{})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "header.mustache")); err != nil {
		t.Fatalf("expected discovered dependency on disk: %v", err)
	}
	if _, ok := svc.session.Get("spring", "7.0.0", "header.mustache"); !ok {
		t.Fatal("expected the dependency fetch to populate the session cache")
	}
}

func TestCheckLibraryCompatibilityCollectsViolations(t *testing.T) {
	metas := []*domain.LibraryMetadata{
		{Name: "legacy-lib", MinOpenApiGeneratorVersion: "8.0.0", MaxOpenApiGeneratorVersion: "8.5.0"},
		{Name: "fine-lib", MinOpenApiGeneratorVersion: "6.0.0"},
	}
	err := CheckLibraryCompatibility(metas, "spring", "9.0.0", "")
	if err == nil {
		t.Fatal("expected a compatibility error")
	}
	compatErr, ok := err.(*domain.LibraryCompatibilityError)
	if !ok {
		t.Fatalf("expected *domain.LibraryCompatibilityError, got %T", err)
	}
	if len(compatErr.Violations) != 1 || compatErr.Violations[0].Library != "legacy-lib" {
		t.Fatalf("expected exactly one violation for legacy-lib, got %+v", compatErr.Violations)
	}
}

func TestCheckLibraryCompatibilityAllowsUnconstrained(t *testing.T) {
	metas := []*domain.LibraryMetadata{{Name: "any-lib"}}
	if err := CheckLibraryCompatibility(metas, "spring", "9.0.0", "1.0.0"); err != nil {
		t.Fatalf("expected no violation, got %v", err)
	}
}

func TestCheckLibraryCompatibilityUnsupportedGenerator(t *testing.T) {
	metas := []*domain.LibraryMetadata{{Name: "java-only", SupportedGenerators: []string{"java"}}}
	err := CheckLibraryCompatibility(metas, "spring", "9.0.0", "")
	if err == nil {
		t.Fatal("expected a violation for an unsupported generator")
	}
}
