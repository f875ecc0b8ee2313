package domain

import (
	"errors"
	"fmt"
)

func newSentinel(msg string) error { return errors.New(msg) }

// Error kinds from spec.md §7. Each carries structured context (source,
// path, offset where applicable) and a stable Error() message; callers use
// errors.As to branch on kind and errors.Is for the bare sentinels.

// ConfigurationError reports invalid configuration: unknown source name,
// missing required path, invalid ordering. Fatal for the run.
type ConfigurationError struct {
	Key       string
	Value     string
	Reason    string
	Allowed   []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("configuration: key %q value %q: %s (allowed: %v)", e.Key, e.Value, e.Reason, e.Allowed)
	}
	return fmt.Sprintf("configuration: key %q value %q: %s", e.Key, e.Value, e.Reason)
}

// InventoryError reports an unreadable archive entry or malformed library
// metadata encountered while building the SourceInventory (C2).
type InventoryError struct {
	Source SourceKind
	Path   string
	Err    error
	Fatal  bool
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("inventory: source %s path %q: %v", e.Source, e.Path, e.Err)
}

func (e *InventoryError) Unwrap() error { return e.Err }

// YamlError reports a parse or schema violation in one customization
// document. Fatal for that document only; the run continues without it.
type YamlError struct {
	Path   string
	Issues []string
}

func (e *YamlError) Error() string {
	return fmt.Sprintf("yaml: %s: %v", e.Path, e.Issues)
}

// SecurityError reports dangerous content detected in a customization
// document (spec.md §4.3). Fatal for that document.
type SecurityError struct {
	Path  string
	Field string
	Token string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security: %s field %s contains forbidden token %q", e.Path, e.Field, e.Token)
}

// ResolutionError reports that no applicable source provides a template:
// a customization's target, or a partial reached during dependency
// discovery (spec.md §4.7). Template names the missing template; Partial,
// when non-empty, names the partial reference that led to it. Fatal for the
// affected spec.
type ResolutionError struct {
	Template TemplateName
	Partial  string
}

func (e *ResolutionError) Error() string {
	if e.Partial == "" {
		return fmt.Sprintf("resolution: no source provides template %s", e.Template)
	}
	return fmt.Sprintf("resolution: template %s references undefined partial %q", e.Template, e.Partial)
}

// IOError wraps a filesystem failure with path context. Fatal for the
// affected spec.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// LibraryCompatibilityError lists every library whose declared generator or
// plugin version range excludes the detected versions. Fatal for the run.
type LibraryCompatibilityError struct {
	Violations []LibraryCompatibilityViolation
}

type LibraryCompatibilityViolation struct {
	Library           string
	DeclaredMin       string
	DeclaredMax       string
	DetectedGenerator string
}

func (e *LibraryCompatibilityError) Error() string {
	return fmt.Sprintf("library compatibility: %d violation(s): %v", len(e.Violations), e.Violations)
}

// CacheIntegrityError describes a digest mismatch in the global cache.
// GlobalCache.Get does not return it: a mismatched entry is purged and
// reported as a miss, and the caller refetches the body from its source. A
// failed write-back of the refetched body is not reported as an error.
type CacheIntegrityError struct {
	Key      string
	Expected string
	Actual   string
}

func (e *CacheIntegrityError) Error() string {
	return fmt.Sprintf("cache integrity: key %s: expected %s got %s", e.Key, e.Expected, e.Actual)
}

// PreparationError wraps any of the above for a single specification's
// result in the scheduler's per-spec result map (spec.md §4.9).
type PreparationError struct {
	Spec string
	Err  error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("spec %s: %v", e.Spec, e.Err)
}

func (e *PreparationError) Unwrap() error { return e.Err }
