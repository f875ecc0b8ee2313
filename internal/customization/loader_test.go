package customization

import (
	"strings"
	"testing"

	"github.com/opencustomize/opencustomize/internal/domain"
)

type fakeIDGen struct{ n int }

func (f *fakeIDGen) NewID() (string, error) {
	f.n++
	return "doc-" + strings.Repeat("x", f.n), nil
}

func TestLoadValidDocument(t *testing.T) {
	yamlBody := []byte(`
insertions:
  - at: start
    content: "// header\n"
replacements:
  - find: "foo"
    replace: "bar"
`)
	doc, err := Load(yamlBody, domain.TemplateName("pojo.mustache"), &fakeIDGen{}, "fixture.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.TemplateName != "pojo.mustache" || doc.ID == "" {
		t.Fatalf("expected name/id to be populated, got %+v", doc)
	}
	if len(doc.Insertions) != 1 || len(doc.Replacements) != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestLoadRejectsEmptyDocument(t *testing.T) {
	if _, err := Load([]byte("insertions: []\nreplacements: []\n"), "t", &fakeIDGen{}, "f.yaml"); err == nil {
		t.Fatal("expected error: no operations declared")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	yamlBody := []byte("insertions:\n  - at: start\n    content: x\nbogusField: true\n")
	if _, err := Load(yamlBody, "t", &fakeIDGen{}, "f.yaml"); err == nil {
		t.Fatal("expected rejection of unknown top-level field")
	}
}

func TestLoadRejectsDangerousToken(t *testing.T) {
	yamlBody := []byte(`
insertions:
  - at: end
    content: "<script>alert(1)</script>"
`)
	_, err := Load(yamlBody, "t", &fakeIDGen{}, "f.yaml")
	if err == nil {
		t.Fatal("expected security rejection")
	}
}

func TestLoadRejectsInvalidAnchorCount(t *testing.T) {
	yamlBody := []byte(`
insertions:
  - after: "x"
    before: "y"
    content: "z"
`)
	if _, err := Load(yamlBody, "t", &fakeIDGen{}, "f.yaml"); err == nil {
		t.Fatal("expected rejection of ambiguous anchor")
	}
}

func TestLoadRejectsBadRegexFind(t *testing.T) {
	yamlBody := []byte(`
replacements:
  - find: "("
    replace: "x"
    type: regex
`)
	if _, err := Load(yamlBody, "t", &fakeIDGen{}, "f.yaml"); err == nil {
		t.Fatal("expected rejection of non-compiling regex")
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	yamlBody := []byte("insertions:\n  - at: start\n    content: a\n    content: b\n")
	if _, err := Load(yamlBody, "t", &fakeIDGen{}, "f.yaml"); err == nil {
		t.Fatal("expected rejection of duplicate mapping key")
	}
}

func TestLoadRejectsExcessiveAliases(t *testing.T) {
	var b strings.Builder
	b.WriteString("anchors:\n")
	b.WriteString("  base: &base\n    at: start\n    content: x\n")
	b.WriteString("insertions:\n")
	for i := 0; i < maxAliasCount+1; i++ {
		b.WriteString("  - <<: *base\n")
	}
	if _, err := Load([]byte(b.String()), "t", &fakeIDGen{}, "f.yaml"); err == nil {
		t.Fatal("expected rejection of excessive alias count")
	}
}
