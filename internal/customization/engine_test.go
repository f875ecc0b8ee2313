package customization

import (
	"testing"

	"github.com/opencustomize/opencustomize/internal/domain"
)

func TestApplyInsertionAtStart(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("public class X {}"))
	doc := &domain.CustomizationDocument{
		Insertions: []domain.Insertion{{At: "start", Content: "// HDR\n"}},
	}
	out, changed := e.Apply(body, doc, domain.EvaluationContext{}, nil)
	if !changed {
		t.Fatal("expected modification")
	}
	if out.String() != "// HDR\npublic class X {}" {
		t.Fatalf("unexpected body: %q", out.String())
	}
}

func TestApplyStackedInsertionsPrecedenceOrder(t *testing.T) {
	// Simulates §8 scenario 3: three documents, one per precedence tier,
	// each inserting at start; folded highest-precedence-last so the
	// final prefix order is user, then library, then plugin.
	e := NewEngine(nil)
	base := domain.NewTemplateBody([]byte("BASE"))
	plugin := &domain.CustomizationDocument{Insertions: []domain.Insertion{{At: "start", Content: "A\n"}}}
	library := &domain.CustomizationDocument{Insertions: []domain.Insertion{{At: "start", Content: "B\n"}}}
	user := &domain.CustomizationDocument{Insertions: []domain.Insertion{{At: "start", Content: "C\n"}}}

	body, _ := e.Apply(base, plugin, domain.EvaluationContext{}, nil)
	body, _ = e.Apply(body, library, domain.EvaluationContext{}, nil)
	body, _ = e.Apply(body, user, domain.EvaluationContext{}, nil)

	want := "C\nB\nA\nBASE"
	if body.String() != want {
		t.Fatalf("got %q want %q", body.String(), want)
	}
}

func TestApplyDocumentConditionGatesContribution(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("no matching text here"))
	doc := &domain.CustomizationDocument{
		Conditions:  &domain.ConditionSet{TemplateContains: "@Schema("},
		Insertions:  []domain.Insertion{{At: "end", Content: "X"}},
	}
	out, changed := e.Apply(body, doc, domain.EvaluationContext{}, nil)
	if changed {
		t.Fatal("expected no modification when document condition is false")
	}
	if out.String() != body.String() {
		t.Fatal("body must be untouched")
	}
}

func TestApplyReplacementLiteralAllOccurrences(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("foo foo foo"))
	doc := &domain.CustomizationDocument{
		Replacements: []domain.Replacement{{Find: "foo", Replace: "bar"}},
	}
	out, changed := e.Apply(body, doc, domain.EvaluationContext{}, nil)
	if !changed || out.String() != "bar bar bar" {
		t.Fatalf("got %q", out.String())
	}
}

func TestApplyReplacementRegex(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("value = 42;"))
	doc := &domain.CustomizationDocument{
		Replacements: []domain.Replacement{{Find: `\d+`, Replace: "0", Type: domain.PatternRegex}},
	}
	out, _ := e.Apply(body, doc, domain.EvaluationContext{}, nil)
	if out.String() != "value = 0;" {
		t.Fatalf("got %q", out.String())
	}
}

func TestApplyInsertionFallbackWhenAnchorMissing(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("no anchor here"))
	doc := &domain.CustomizationDocument{
		Insertions: []domain.Insertion{{
			After:   "MISSING",
			Content: "never",
			Fallback: &domain.Insertion{At: "end", Content: "\nFALLBACK"},
		}},
	}
	out, changed := e.Apply(body, doc, domain.EvaluationContext{}, nil)
	if !changed || out.String() != "no anchor here\nFALLBACK" {
		t.Fatalf("got %q", out.String())
	}
}

func TestApplySmartReplacementFindAnyFirstWins(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("has SECOND not first"))
	doc := &domain.CustomizationDocument{
		SmartReplacements: []domain.SmartReplacement{{
			FindAny: []string{"FIRST", "SECOND"},
			Replace: "X",
		}},
	}
	out, changed := e.Apply(body, doc, domain.EvaluationContext{}, nil)
	if !changed || out.String() != "has X not first" {
		t.Fatalf("got %q", out.String())
	}
}

func TestApplyPartialExpansionSinglePass(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("BASE"))
	doc := &domain.CustomizationDocument{
		Insertions: []domain.Insertion{{At: "start", Content: "{{>header}}\n"}},
	}
	resolver := &fakePartials{m: map[string]string{"header": "// {{>nested}}"}}
	out, _ := e.Apply(body, doc, domain.EvaluationContext{}, resolver)
	want := "// {{>nested}}\nBASE"
	if out.String() != want {
		t.Fatalf("got %q want %q (nested refs must not expand)", out.String(), want)
	}
}

func TestApplyPartialExpansionUnknownNameLeftForDependencyDiscovery(t *testing.T) {
	e := NewEngine(nil)
	body := domain.NewTemplateBody([]byte("BASE"))
	doc := &domain.CustomizationDocument{
		Insertions: []domain.Insertion{{At: "start", Content: "{{> other-template.mustache }}\n"}},
	}
	out, _ := e.Apply(body, doc, domain.EvaluationContext{}, &fakePartials{m: map[string]string{}})
	if out.String() != "{{> other-template.mustache }}\nBASE" {
		t.Fatalf("got %q", out.String())
	}
}

type fakePartials struct{ m map[string]string }

func (f *fakePartials) Partial(name string) (string, bool) {
	v, ok := f.m[name]
	return v, ok
}
