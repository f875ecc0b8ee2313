// Package resolver implements C6: choosing, per template name, the
// correct base template by source precedence and folding the applicable
// customization stack over it.
package resolver

import (
	"context"
	"sort"

	"github.com/opencustomize/opencustomize/internal/customization"
	"github.com/opencustomize/opencustomize/internal/domain"
	"github.com/opencustomize/opencustomize/internal/inventory"
)

// Resolver ties the customization engine and a document-id generator to
// repeated Resolve calls across specs within one preparation.
type Resolver struct {
	engine *customization.Engine
	idGen  domain.DocumentIDGenerator
}

// New builds a Resolver. A nil engine falls back to
// customization.NewEngine(nil) (the default semantic catalog).
func New(engine *customization.Engine, idGen domain.DocumentIDGenerator) *Resolver {
	if engine == nil {
		engine = customization.NewEngine(nil)
	}
	return &Resolver{engine: engine, idGen: idGen}
}

type loadedDoc struct {
	source domain.SourceKind
	doc    *domain.CustomizationDocument
}

// Resolve runs C6 for one generator against inv, honoring the configured
// source order, which Resolve narrows to the sources inv actually has
// (Inventory.ApplicableOrder). evalCtx supplies
// the environment/feature/version facts condition evaluation needs; its
// TemplateBody field is overwritten per template as resolution proceeds.
// ctx is checked once before any work starts (spec.md §4.9's "resolver
// start" checkpoint).
func (r *Resolver) Resolve(
	ctx context.Context,
	generator domain.GeneratorId,
	inv *inventory.Inventory,
	configuredSources []domain.SourceKind,
	evalCtx domain.EvaluationContext,
) (map[domain.TemplateName]domain.ResolvedTemplate, *Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	applicable := inv.ApplicableOrder(configuredSources)
	report := newReport(generator)

	explicit, err := buildExplicitSet(inv, applicable, report)
	if err != nil {
		return nil, nil, err
	}

	allDocs, err := loadAllCustomizations(inv, applicable, r.idGen, report)
	if err != nil {
		return nil, nil, err
	}

	partials := customization.NewMergedPartialsResolver(sortedDocsBySource(allDocs))

	targets := map[domain.TemplateName]bool{}
	for name := range explicit {
		targets[name] = true
	}
	for _, ld := range allDocs {
		targets[ld.doc.TemplateName] = true
	}

	resolved := make(map[domain.TemplateName]domain.ResolvedTemplate, len(targets))
	for name := range targets {
		rt, err := r.resolveOne(name, explicit, allDocs, inv, applicable, evalCtx, partials, report)
		if err != nil {
			return nil, nil, err
		}
		resolved[name] = rt
	}
	return resolved, report, nil
}

func (r *Resolver) resolveOne(
	name domain.TemplateName,
	explicit map[domain.TemplateName]domain.SourceKind,
	allDocs []loadedDoc,
	inv *inventory.Inventory,
	applicable []domain.SourceKind,
	ctx domain.EvaluationContext,
	partials domain.PartialsResolver,
	report *Report,
) (domain.ResolvedTemplate, error) {
	baseSource, base, err := baseBody(name, explicit, inv, applicable)
	if err != nil {
		return domain.ResolvedTemplate{}, err
	}
	report.entry(name).ChosenSource = baseSource

	stack := stackFor(name, allDocs)
	applyOrder := make([]loadedDoc, len(stack))
	for i, ld := range stack {
		applyOrder[len(stack)-1-i] = ld
	}

	body := base
	var applied []domain.AppliedCustomizationRef
	for _, ld := range applyOrder {
		next, changed := r.engine.Apply(body, ld.doc, ctx, partials)
		if changed {
			body = next
			ref := domain.AppliedCustomizationRef{Source: ld.source, DocumentID: ld.doc.ID, Name: name}
			applied = append(applied, ref)
		}
	}
	report.entry(name).AppliedDocuments = applied

	return domain.ResolvedTemplate{
		Name:                  name,
		Body:                  body,
		BaseSource:            baseSource,
		BaseBody:              base,
		AppliedCustomizations: applied,
		Modified:              len(applied) > 0,
	}, nil
}

// ResolveBaseTemplate looks up the highest-precedence source that can
// supply name's raw body, with no customization folded over it. The
// working-directory builder (C7) uses this during dependency discovery
// (spec.md §4.7), where a referenced partial is fetched as-is.
func ResolveBaseTemplate(inv *inventory.Inventory, applicable []domain.SourceKind, name domain.TemplateName) (domain.TemplateBody, domain.SourceKind, error) {
	for _, kind := range applicable {
		if !kind.ProvidesTemplates() {
			continue
		}
		view, ok := inv.View(kind)
		if !ok {
			continue
		}
		has, err := view.HasTemplate(name)
		if err != nil {
			return domain.TemplateBody{}, 0, err
		}
		if !has {
			continue
		}
		body, err := view.ReadTemplate(name)
		return body, kind, err
	}
	return domain.TemplateBody{}, 0, &domain.ResolutionError{Template: name}
}

func baseBody(
	name domain.TemplateName,
	explicit map[domain.TemplateName]domain.SourceKind,
	inv *inventory.Inventory,
	applicable []domain.SourceKind,
) (domain.SourceKind, domain.TemplateBody, error) {
	if source, ok := explicit[name]; ok {
		view, _ := inv.View(source)
		body, err := view.ReadTemplate(name)
		return source, body, err
	}
	for _, kind := range applicable {
		if kind != domain.GeneratorDefault {
			continue
		}
		view, ok := inv.View(kind)
		if !ok {
			continue
		}
		has, err := view.HasTemplate(name)
		if err != nil {
			return 0, domain.TemplateBody{}, err
		}
		if has {
			body, err := view.ReadTemplate(name)
			return domain.GeneratorDefault, body, err
		}
	}
	return 0, domain.TemplateBody{}, &domain.ResolutionError{Template: name, Partial: ""}
}

func buildExplicitSet(inv *inventory.Inventory, applicable []domain.SourceKind, report *Report) (map[domain.TemplateName]domain.SourceKind, error) {
	explicit := map[domain.TemplateName]domain.SourceKind{}
	for _, kind := range applicable {
		if !kind.ProvidesTemplates() || kind == domain.GeneratorDefault {
			continue
		}
		view, ok := inv.View(kind)
		if !ok {
			continue
		}
		names, err := view.ListTemplates()
		if err == domain.ErrNotEnumerable {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if existing, claimed := explicit[name]; claimed {
				_ = existing
				e := report.entry(name)
				e.ShadowedSources = append(e.ShadowedSources, kind)
				continue
			}
			explicit[name] = kind
		}
	}
	return explicit, nil
}

func loadAllCustomizations(inv *inventory.Inventory, applicable []domain.SourceKind, idGen domain.DocumentIDGenerator, report *Report) ([]loadedDoc, error) {
	var out []loadedDoc
	for _, kind := range applicable {
		if !kind.ProvidesCustomizations() {
			continue
		}
		view, ok := inv.View(kind)
		if !ok {
			continue
		}
		names, err := view.ListCustomizations()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			raw, err := view.ReadCustomization(name)
			if err != nil {
				return nil, err
			}
			doc, err := customization.Load(raw, name, idGen, string(name))
			if err != nil {
				// A malformed document is fatal for that document only
				// (spec.md §7); it is excluded from the stack, not the run.
				report.ExcludedDocuments = append(report.ExcludedDocuments, err)
				continue
			}
			out = append(out, loadedDoc{source: kind, doc: doc})
		}
	}
	return out, nil
}

func stackFor(name domain.TemplateName, allDocs []loadedDoc) []loadedDoc {
	var out []loadedDoc
	for _, ld := range allDocs {
		if ld.doc.TemplateName == name {
			out = append(out, ld)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].source.Less(out[j].source) })
	return out
}

func sortedDocsBySource(allDocs []loadedDoc) []*domain.CustomizationDocument {
	sorted := make([]loadedDoc, len(allDocs))
	copy(sorted, allDocs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].source.Less(sorted[j].source) })
	out := make([]*domain.CustomizationDocument, len(sorted))
	for i, ld := range sorted {
		out[i] = ld.doc
	}
	return out
}
