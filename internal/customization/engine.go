package customization

import (
	"regexp"
	"strings"

	"github.com/opencustomize/opencustomize/internal/condition"
	"github.com/opencustomize/opencustomize/internal/domain"
)

// Engine applies validated customization documents to a template body
// (C5). It holds only the semantic probe catalog; everything else is
// threaded through Apply's arguments so the algorithm stays a pure function
// of (body, document, context, partials) as required by spec.md §4.5.
type Engine struct {
	catalog *Catalog
}

// NewEngine builds an Engine backed by catalog. A nil catalog falls back
// to DefaultCatalog.
func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

// Apply folds one document over body and reports whether it changed
// anything. A document whose top-level conditions evaluate false
// contributes nothing and is not an error.
func (e *Engine) Apply(body domain.TemplateBody, doc *domain.CustomizationDocument, ctx domain.EvaluationContext, partials domain.PartialsResolver) (domain.TemplateBody, bool) {
	if doc.Conditions != nil && !doc.Conditions.IsEmpty() {
		ctx.TemplateBody = body.Bytes
		if !condition.Evaluate(doc.Conditions, ctx) {
			return body, false
		}
	}

	text := string(body.Bytes)
	modified := false

	for _, r := range doc.Replacements {
		next, changed := e.applyReplacement(text, r, ctx, partials)
		if changed {
			text = next
			modified = true
		}
	}

	for _, sr := range doc.SmartReplacements {
		next, changed := e.applySmartReplacement(text, sr, ctx, partials)
		if changed {
			text = next
			modified = true
		}
	}

	for _, i := range doc.Insertions {
		next, changed := e.applyInsertion(text, i, ctx, partials)
		if changed {
			text = next
			modified = true
		}
	}

	for _, si := range doc.SmartInsertions {
		next, changed := e.applySmartInsertion(text, si, ctx, partials)
		if changed {
			text = next
			modified = true
		}
	}

	if !modified {
		return body, false
	}
	return domain.NewTemplateBody([]byte(text)), true
}

func (e *Engine) evalCtx(ctx domain.EvaluationContext, body string) domain.EvaluationContext {
	ctx.TemplateBody = []byte(body)
	return ctx
}

func (e *Engine) applyReplacement(body string, r domain.Replacement, ctx domain.EvaluationContext, partials domain.PartialsResolver) (string, bool) {
	if r.Conditions != nil && !condition.Evaluate(r.Conditions, e.evalCtx(ctx, body)) {
		if r.Fallback != nil {
			return e.applyReplacement(body, *r.Fallback, ctx, partials)
		}
		return body, false
	}
	replace := expandPartialsOnce(r.Replace, partials)
	if r.EffectiveType() == domain.PatternRegex {
		re, err := regexp.Compile(r.Find)
		if err != nil {
			return body, false
		}
		if !re.MatchString(body) {
			return body, false
		}
		return re.ReplaceAllString(body, replace), true
	}
	if !strings.Contains(body, r.Find) {
		return body, false
	}
	return strings.ReplaceAll(body, r.Find, replace), true
}

func (e *Engine) applySmartReplacement(body string, sr domain.SmartReplacement, ctx domain.EvaluationContext, partials domain.PartialsResolver) (string, bool) {
	if sr.Conditions != nil && !condition.Evaluate(sr.Conditions, e.evalCtx(ctx, body)) {
		return body, false
	}
	replace := expandPartialsOnce(sr.Replace, partials)

	if len(sr.FindAny) > 0 {
		for _, candidate := range sr.FindAny {
			if idx := strings.Index(body, candidate); idx >= 0 {
				return spliceLiteral(body, idx, idx+len(candidate), replace), true
			}
		}
		return body, false
	}

	if sr.FindPattern != nil {
		for _, v := range sr.FindPattern.Variants {
			if sr.FindPattern.Type == domain.PatternRegex {
				re, err := regexp.Compile(v)
				if err != nil {
					continue
				}
				if loc := re.FindStringIndex(body); loc != nil {
					return spliceLiteral(body, loc[0], loc[1], replace), true
				}
				continue
			}
			if idx := strings.Index(body, v); idx >= 0 {
				return spliceLiteral(body, idx, idx+len(v), replace), true
			}
		}
		return body, false
	}

	if sr.Semantic != "" {
		if start, end, ok := e.catalog.ReplacementRange(sr.Semantic, body); ok {
			return spliceLiteral(body, start, end, replace), true
		}
		return body, false
	}

	return body, false
}

func (e *Engine) applyInsertion(body string, i domain.Insertion, ctx domain.EvaluationContext, partials domain.PartialsResolver) (string, bool) {
	if i.Conditions != nil && !condition.Evaluate(i.Conditions, e.evalCtx(ctx, body)) {
		if i.Fallback != nil {
			return e.applyInsertion(body, *i.Fallback, ctx, partials)
		}
		return body, false
	}
	content := expandPartialsOnce(i.Content, partials)

	switch i.Anchor() {
	case domain.AnchorStart:
		return content + body, true
	case domain.AnchorEnd:
		return body + content, true
	case domain.AnchorAfter:
		idx := strings.Index(body, i.After)
		if idx < 0 {
			if i.Fallback != nil {
				return e.applyInsertion(body, *i.Fallback, ctx, partials)
			}
			return body, false
		}
		pos := idx + len(i.After)
		return body[:pos] + content + body[pos:], true
	case domain.AnchorBefore:
		idx := strings.Index(body, i.Before)
		if idx < 0 {
			if i.Fallback != nil {
				return e.applyInsertion(body, *i.Fallback, ctx, partials)
			}
			return body, false
		}
		return body[:idx] + content + body[idx:], true
	}
	return body, false
}

func (e *Engine) applySmartInsertion(body string, si domain.SmartInsertion, ctx domain.EvaluationContext, partials domain.PartialsResolver) (string, bool) {
	if si.Conditions != nil && !condition.Evaluate(si.Conditions, e.evalCtx(ctx, body)) {
		if si.Fallback != nil {
			return e.applyInsertion(body, *si.Fallback, ctx, partials)
		}
		return body, false
	}
	content := expandPartialsOnce(si.Content, partials)

	if si.FindInsertionPoint != nil {
		for _, p := range si.FindInsertionPoint.Patterns {
			if p.After != "" {
				if idx := strings.Index(body, p.After); idx >= 0 {
					pos := idx + len(p.After)
					return body[:pos] + content + body[pos:], true
				}
			}
			if p.Before != "" {
				if idx := strings.Index(body, p.Before); idx >= 0 {
					return body[:idx] + content + body[idx:], true
				}
			}
		}
		if si.Fallback != nil {
			return e.applyInsertion(body, *si.Fallback, ctx, partials)
		}
		return body, false
	}

	if si.Semantic != "" {
		if pos, ok := e.catalog.InsertionPoint(string(si.Semantic), body); ok {
			return body[:pos] + content + body[pos:], true
		}
		if si.Fallback != nil {
			return e.applyInsertion(body, *si.Fallback, ctx, partials)
		}
		return body, false
	}

	return body, false
}

func spliceLiteral(body string, start, end int, replacement string) string {
	return body[:start] + replacement + body[end:]
}
