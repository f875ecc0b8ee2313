package customization

import (
	"regexp"

	"github.com/opencustomize/opencustomize/internal/domain"
)

var partialRefRe = regexp.MustCompile(`\{\{>\s*([A-Za-z0-9_./-]+)\s*\}\}`)

// mergedPartials is a domain.PartialsResolver built by folding each
// document's partials map in precedence order; the first (highest
// precedence) definition of a name wins.
type mergedPartials struct {
	byName map[string]string
}

// NewMergedPartialsResolver folds docs (already ordered highest-precedence
// first) into one resolver.
func NewMergedPartialsResolver(docsHighestFirst []*domain.CustomizationDocument) domain.PartialsResolver {
	m := &mergedPartials{byName: map[string]string{}}
	for _, doc := range docsHighestFirst {
		if doc == nil {
			continue
		}
		for name, body := range doc.Partials {
			if _, exists := m.byName[name]; !exists {
				m.byName[name] = body
			}
		}
	}
	return m
}

func (m *mergedPartials) Partial(name string) (string, bool) {
	body, ok := m.byName[name]
	return body, ok
}

// expandPartialsOnce expands every {{>name}} occurrence in content using
// partials, in a single pass (spec.md §4.5 step 6): a partial's own body is
// never itself re-scanned for further {{>name}} references, so expansion
// cannot loop. References to names the resolver does not know are left
// untouched, since they refer to template files resolved later by the
// working-directory builder's dependency discovery, not to a named
// fragment.
func expandPartialsOnce(content string, partials domain.PartialsResolver) string {
	if partials == nil {
		return content
	}
	return partialRefRe.ReplaceAllStringFunc(content, func(match string) string {
		sub := partialRefRe.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		if body, ok := partials.Partial(sub[1]); ok {
			return body
		}
		return match
	})
}
