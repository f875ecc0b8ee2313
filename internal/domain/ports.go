package domain

import (
	"io/fs"
	"time"
)

// ArchiveReader exposes the three operations C1 needs from a library
// archive (a JAR, in practice a zip file): enumerate members under a
// prefix, read one entry, and read the optional library descriptor.
type ArchiveReader interface {
	// List returns every entry path under prefix (prefix itself excluded).
	List(prefix string) ([]string, error)
	// Read returns the raw bytes of one entry.
	Read(entryPath string) ([]byte, error)
	// ReadMetadata reads META-INF/openapi-library.yaml. A missing
	// descriptor is not an error: it yields (nil, nil).
	ReadMetadata() (*LibraryMetadata, error)
	// Close releases any underlying file handle.
	Close() error
}

// GeneratorDefaultsProvider is the abstract interface onto the external code
// generator's bundled default templates (spec.md §6). The generator-default
// source is deliberately lazy: inventory only asks "do you have this name"
// rather than enumerating the generator's (possibly large, possibly opaque)
// template set up front.
type GeneratorDefaultsProvider interface {
	Has(generator GeneratorId, name TemplateName) (bool, error)
	Read(generator GeneratorId, name TemplateName) ([]byte, error)
}

// PluginResources is the bundled resource tree a build-tool plugin ships its
// own customizations in, rooted so that
// templateCustomizations/<generator>/<name>.yaml is reachable. fs.FS (and so
// embed.FS) satisfies this directly.
type PluginResources = fs.FS

// ErrNotEnumerable is returned by SourceView.ListTemplates /
// ListCustomizations for sources that cannot enumerate their full contents
// (the lazy generator-default source).
var ErrNotEnumerable = newSentinel("source does not support enumeration")

// SourceView is the closed-set replacement for an inheritance-based source
// hierarchy (spec.md §9): one small interface, six concrete implementations,
// dispatched by the resolver iterating SourceKind in precedence order
// rather than by polymorphism.
type SourceView interface {
	Kind() SourceKind
	ListTemplates() ([]TemplateName, error)
	ListCustomizations() ([]TemplateName, error)
	// HasTemplate reports membership without requiring enumeration; this is
	// the only membership test the lazy generator-default source supports.
	HasTemplate(name TemplateName) (bool, error)
	ReadTemplate(name TemplateName) (TemplateBody, error)
	// ReadCustomization returns the raw YAML bytes of one customization
	// document; C3 parses it.
	ReadCustomization(name TemplateName) ([]byte, error)
}

// PartialsResolver exposes named partial fragments merged across sources by
// precedence (highest-precedence definition of a given name wins).
type PartialsResolver interface {
	Partial(name string) (string, bool)
}

// EvaluationContext is the immutable input to the condition algebra
// (spec.md §4.4). Threaded explicitly rather than carried on a
// thread-local, so evaluation stays deterministic under work-stealing pools
// (spec.md §9).
type EvaluationContext struct {
	TemplateBody             []byte
	DetectedGeneratorVersion string // empty means unknown
	Features                 map[string]bool
	ProjectProperties        map[string]string
	Environment               map[string]string
	BuildType                 string // empty means unknown
}

// DiagnosticContext carries the MDC-style naming spec.md §9 asks for
// (spec/template/component), threaded explicitly into slog attributes
// instead of a thread-local.
type DiagnosticContext struct {
	Spec      string
	Generator GeneratorId
	Template  TemplateName
	Component string
}

// Attrs renders the context as slog key/value pairs.
func (c DiagnosticContext) Attrs() []any {
	attrs := make([]any, 0, 8)
	if c.Spec != "" {
		attrs = append(attrs, "spec", c.Spec)
	}
	if c.Generator != "" {
		attrs = append(attrs, "generator", string(c.Generator))
	}
	if c.Template != "" {
		attrs = append(attrs, "template", string(c.Template))
	}
	if c.Component != "" {
		attrs = append(attrs, "component", c.Component)
	}
	return attrs
}

// DocumentIDGenerator mints identities for customization documents, so
// ResolvedTemplate.AppliedCustomizations can record provenance. Backed by
// google/uuid in production (see internal/infrastructure/adapters).
type DocumentIDGenerator interface {
	NewID() (string, error)
}

// Clock abstracts "now". No preparation component reads it: manifests carry
// no timestamp and cache entries have no TTL.
type Clock interface {
	Now() time.Time
}
