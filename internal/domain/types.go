// Package domain holds the data model shared by every stage of template
// resolution: source precedence, template bodies, customization documents,
// and the resolved artifacts the working-directory builder consumes.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GeneratorId namespaces template name spaces; templates from different
// generators never collide.
type GeneratorId string

// TemplateName is a relative path under a generator namespace, e.g.
// "pojo.mustache". It is unique within (GeneratorId, Source).
type TemplateName string

// SourceKind is a closed, totally ordered set of template/customization
// origins. Precedence is a pure function of the variant: lower value wins.
type SourceKind int

const (
	UserTemplate SourceKind = iota + 1
	UserCustomization
	LibraryTemplate
	LibraryCustomization
	PluginCustomization
	GeneratorDefault
)

// allSourceKinds lists every variant in precedence order.
var allSourceKinds = []SourceKind{
	UserTemplate, UserCustomization, LibraryTemplate,
	LibraryCustomization, PluginCustomization, GeneratorDefault,
}

// AllSourceKinds returns the closed set of source kinds in default
// (highest-to-lowest) precedence order.
func AllSourceKinds() []SourceKind {
	out := make([]SourceKind, len(allSourceKinds))
	copy(out, allSourceKinds)
	return out
}

// ProvidesTemplates reports whether this source kind can host explicit
// template bodies (as opposed to customization-only sources).
func (k SourceKind) ProvidesTemplates() bool {
	switch k {
	case UserTemplate, LibraryTemplate, GeneratorDefault:
		return true
	default:
		return false
	}
}

// ProvidesCustomizations reports whether this source kind can host
// customization documents.
func (k SourceKind) ProvidesCustomizations() bool {
	switch k {
	case UserCustomization, LibraryCustomization, PluginCustomization:
		return true
	default:
		return false
	}
}

// Less reports whether k has strictly higher precedence than other
// (lower ordinal wins).
func (k SourceKind) Less(other SourceKind) bool {
	return int(k) < int(other)
}

func (k SourceKind) String() string {
	switch k {
	case UserTemplate:
		return "UserTemplate"
	case UserCustomization:
		return "UserCustomization"
	case LibraryTemplate:
		return "LibraryTemplate"
	case LibraryCustomization:
		return "LibraryCustomization"
	case PluginCustomization:
		return "PluginCustomization"
	case GeneratorDefault:
		return "GeneratorDefault"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// ParseSourceKind recognizes exactly the six names from the closed set used
// in the `templateSources` configuration key. An unknown name is reported by
// the caller as a ConfigurationError.
func ParseSourceKind(name string) (SourceKind, bool) {
	for _, k := range allSourceKinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// TemplateBody is a line-ending-preserving UTF-8 byte sequence. Content
// identity is its SHA-256 digest.
type TemplateBody struct {
	Bytes []byte
}

// NewTemplateBody wraps raw bytes as a TemplateBody.
func NewTemplateBody(b []byte) TemplateBody {
	return TemplateBody{Bytes: b}
}

// Hash returns the hex-encoded SHA-256 digest of the body.
func (b TemplateBody) Hash() string {
	sum := sha256.Sum256(b.Bytes)
	return hex.EncodeToString(sum[:])
}

func (b TemplateBody) String() string {
	return string(b.Bytes)
}

// LibraryMetadata is the parsed contents of a library's
// META-INF/openapi-library.yaml descriptor. It is used only for
// compatibility validation and error messages, never to drive resolution.
type LibraryMetadata struct {
	Name                      string            `yaml:"name"`
	Version                   string            `yaml:"version"`
	SupportedGenerators       []string          `yaml:"supportedGenerators"`
	MinOpenApiGeneratorVersion string           `yaml:"minOpenApiGeneratorVersion,omitempty"`
	MaxOpenApiGeneratorVersion string           `yaml:"maxOpenApiGeneratorVersion,omitempty"`
	MinPluginVersion          string            `yaml:"minPluginVersion,omitempty"`
	Features                  []string          `yaml:"features,omitempty"`
	Dependencies              map[string]string `yaml:"dependencies,omitempty"`
}

// AppliedCustomizationRef records one document that contributed to a
// ResolvedTemplate, for provenance and diagnostics.
type AppliedCustomizationRef struct {
	Source     SourceKind
	DocumentID string
	Name       TemplateName
}

// ResolvedTemplate is the output of the template resolver (C6) and the
// input to the working-directory builder (C7).
type ResolvedTemplate struct {
	Name       TemplateName
	Body       TemplateBody
	BaseSource SourceKind
	// BaseBody is the untouched body the chosen base provider supplied,
	// before any customization was folded over it. It is what gets
	// written to orig/<generator>/<name>.orig when Modified is true.
	BaseBody              TemplateBody
	AppliedCustomizations []AppliedCustomizationRef
	Modified              bool
}
