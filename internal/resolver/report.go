package resolver

import "github.com/opencustomize/opencustomize/internal/domain"

// Report is the diagnostic companion to a resolution pass, gated behind
// debugTemplateResolution (spec.md §6). It records provenance beyond what
// ResolvedTemplate itself carries: which explicit providers were shadowed,
// so a user can see why a template came from the source it did.
type Report struct {
	Generator domain.GeneratorId
	Entries   map[domain.TemplateName]*Entry
	// ExcludedDocuments lists every customization document that failed to
	// load (a YamlError is fatal for the document, not for the run —
	// spec.md §7). The caller decides how to surface these.
	ExcludedDocuments []error
}

// Entry is one template name's resolution diagnostics.
type Entry struct {
	ChosenSource     domain.SourceKind
	ShadowedSources  []domain.SourceKind
	AppliedDocuments []domain.AppliedCustomizationRef
}

func newReport(generator domain.GeneratorId) *Report {
	return &Report{Generator: generator, Entries: map[domain.TemplateName]*Entry{}}
}

func (r *Report) entry(name domain.TemplateName) *Entry {
	e, ok := r.Entries[name]
	if !ok {
		e = &Entry{}
		r.Entries[name] = e
	}
	return e
}
