// Package condition implements C4: evaluating the boolean predicate
// language (domain.ConditionSet) against a template-and-environment
// EvaluationContext. A condition leaf that references missing context
// always evaluates to false; it never panics or returns an error
// (spec.md §4.4 — ConditionError is never thrown).
package condition

import "github.com/opencustomize/opencustomize/internal/domain"

// builtinFeatures is the closed built-in feature-name set; any name
// prefixed "custom_" is also accepted (spec.md §4.4).
var builtinFeatures = map[string]bool{
	"validation": true, "security": true, "async": true, "reactive": true,
	"lombok": true, "jackson": true, "bean-validation": true, "swagger": true,
	"pagination": true, "auditing": true,
}

func isKnownFeatureName(name string) bool {
	if builtinFeatures[name] {
		return true
	}
	const prefix = "custom_"
	return len(name) > len(prefix) && name[:len(prefix)] == prefix
}

// Evaluate evaluates a ConditionSet against ctx. A nil ConditionSet
// (no conditions declared) evaluates true.
func Evaluate(cs *domain.ConditionSet, ctx domain.EvaluationContext) bool {
	if cs == nil || cs.IsEmpty() {
		return true
	}
	return evalLeaves(*cs, ctx) && evalCombinators(*cs, ctx)
}

func evalLeaves(cs domain.ConditionSet, ctx domain.EvaluationContext) bool {
	if cs.GeneratorVersion != "" && !evalGeneratorVersion(cs.GeneratorVersion, ctx) {
		return false
	}
	if cs.TemplateContains != "" && !containsLiteral(ctx.TemplateBody, cs.TemplateContains) {
		return false
	}
	if cs.TemplateNotContains != "" && containsLiteral(ctx.TemplateBody, cs.TemplateNotContains) {
		return false
	}
	if len(cs.TemplateContainsAll) > 0 && !containsAll(ctx.TemplateBody, cs.TemplateContainsAll) {
		return false
	}
	if len(cs.TemplateContainsAny) > 0 && !containsAny(ctx.TemplateBody, cs.TemplateContainsAny) {
		return false
	}
	if cs.HasFeature != "" && !evalHasFeature(cs.HasFeature, ctx) {
		return false
	}
	if len(cs.HasAllFeatures) > 0 && !hasAllFeatures(cs.HasAllFeatures, ctx) {
		return false
	}
	if len(cs.HasAnyFeatures) > 0 && !hasAnyFeatures(cs.HasAnyFeatures, ctx) {
		return false
	}
	if cs.ProjectProperty != "" && !evalKV(cs.ProjectProperty, ctx.ProjectProperties) {
		return false
	}
	if cs.EnvironmentVariable != "" && !evalKV(cs.EnvironmentVariable, ctx.Environment) {
		return false
	}
	if cs.BuildType != "" && cs.BuildType != ctx.BuildType {
		return false
	}
	return true
}

func evalCombinators(cs domain.ConditionSet, ctx domain.EvaluationContext) bool {
	// allOf([]) == true, every populated member must hold.
	for i := range cs.AllOf {
		if !Evaluate(&cs.AllOf[i], ctx) {
			return false
		}
	}
	// anyOf([]) == false: an empty (but present) anyOf list fails unless no
	// anyOf was declared at all, which IsEmpty already treats as absent.
	if cs.AnyOf != nil {
		any := false
		for i := range cs.AnyOf {
			if Evaluate(&cs.AnyOf[i], ctx) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	if cs.Not != nil && Evaluate(cs.Not, ctx) {
		return false
	}
	return true
}

func evalGeneratorVersion(constraint string, ctx domain.EvaluationContext) bool {
	if ctx.DetectedGeneratorVersion == "" {
		return false
	}
	pc, ok := parseConstraint(constraint)
	if !ok {
		return false
	}
	return satisfies(ctx.DetectedGeneratorVersion, pc)
}

func containsLiteral(body []byte, needle string) bool {
	return indexOf(body, needle) >= 0
}

func containsAll(body []byte, needles []string) bool {
	for _, n := range needles {
		if !containsLiteral(body, n) {
			return false
		}
	}
	return true
}

func containsAny(body []byte, needles []string) bool {
	for _, n := range needles {
		if containsLiteral(body, n) {
			return true
		}
	}
	return false
}

func evalHasFeature(name string, ctx domain.EvaluationContext) bool {
	if !isKnownFeatureName(name) {
		return false
	}
	return ctx.Features != nil && ctx.Features[name]
}

func hasAllFeatures(names []string, ctx domain.EvaluationContext) bool {
	for _, n := range names {
		if !evalHasFeature(n, ctx) {
			return false
		}
	}
	return true
}

func hasAnyFeatures(names []string, ctx domain.EvaluationContext) bool {
	for _, n := range names {
		if evalHasFeature(n, ctx) {
			return true
		}
	}
	return false
}

// evalKV handles the `"k"` / `"k=v"` forms shared by projectProperty and
// environmentVariable leaves: presence-only, or presence with exact value.
func evalKV(spec string, values map[string]string) bool {
	if values == nil {
		return false
	}
	key, want, hasValue := splitKV(spec)
	got, ok := values[key]
	if !ok {
		return false
	}
	if !hasValue {
		return true
	}
	return got == want
}

func splitKV(spec string) (key, value string, hasValue bool) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '=' {
			return spec[:i], spec[i+1:], true
		}
	}
	return spec, "", false
}

func indexOf(body []byte, needle string) int {
	return indexBytes(body, []byte(needle))
}

func indexBytes(haystack, needle []byte) int {
	n, m := len(haystack), len(needle)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if string(haystack[i:i+m]) == string(needle) {
			return i
		}
	}
	return -1
}
