package preparation

import (
	"github.com/Masterminds/semver/v3"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// CheckLibraryCompatibility runs the preflight pass from SPEC_FULL.md §B.1:
// every discovered library's declared generator/plugin version bounds are
// checked against what was actually detected, before any resolution work
// starts, and every violation is collected rather than failing on the
// first one (spec.md §7, §8 scenario 6).
func CheckLibraryCompatibility(metas []*domain.LibraryMetadata, generator domain.GeneratorId, detectedGeneratorVersion, detectedPluginVersion string) error {
	var violations []domain.LibraryCompatibilityViolation

	for _, m := range metas {
		if m == nil {
			continue
		}
		if len(m.SupportedGenerators) > 0 && !containsString(m.SupportedGenerators, string(generator)) {
			violations = append(violations, domain.LibraryCompatibilityViolation{
				Library:           m.Name,
				DeclaredMin:       m.MinOpenApiGeneratorVersion,
				DeclaredMax:       m.MaxOpenApiGeneratorVersion,
				DetectedGenerator: string(generator),
			})
			continue
		}
		if detectedGeneratorVersion != "" && !withinBounds(detectedGeneratorVersion, m.MinOpenApiGeneratorVersion, m.MaxOpenApiGeneratorVersion) {
			violations = append(violations, domain.LibraryCompatibilityViolation{
				Library:           m.Name,
				DeclaredMin:       m.MinOpenApiGeneratorVersion,
				DeclaredMax:       m.MaxOpenApiGeneratorVersion,
				DetectedGenerator: detectedGeneratorVersion,
			})
			continue
		}
		if detectedPluginVersion != "" && m.MinPluginVersion != "" && !atLeast(detectedPluginVersion, m.MinPluginVersion) {
			violations = append(violations, domain.LibraryCompatibilityViolation{
				Library:           m.Name,
				DeclaredMin:       m.MinPluginVersion,
				DetectedGenerator: detectedPluginVersion,
			})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &domain.LibraryCompatibilityError{Violations: violations}
}

// withinBounds reports whether detected falls within [min, max], treating
// an empty bound as unconstrained on that side. Unparsable versions are
// treated as compatible: a library descriptor that can't be checked
// precisely must not block a run it has no real evidence against.
func withinBounds(detected, min, max string) bool {
	if min != "" && !atLeast(detected, min) {
		return false
	}
	if max != "" && !atMost(detected, max) {
		return false
	}
	return true
}

func atLeast(detected, bound string) bool {
	d, err1 := semver.NewVersion(detected)
	b, err2 := semver.NewVersion(bound)
	if err1 != nil || err2 != nil {
		return true
	}
	return d.Compare(b) >= 0
}

func atMost(detected, bound string) bool {
	d, err1 := semver.NewVersion(detected)
	b, err2 := semver.NewVersion(bound)
	if err1 != nil || err2 != nil {
		return true
	}
	return d.Compare(b) <= 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
