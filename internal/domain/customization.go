package domain

// PatternType distinguishes literal substring patterns from compiled regex
// patterns in Replacement and SmartReplacement.
type PatternType string

const (
	PatternLiteral PatternType = "literal"
	PatternRegex   PatternType = "regex"
)

// AnchorKind identifies which of the three mutually exclusive anchors an
// Insertion uses.
type AnchorKind string

const (
	AnchorAfter  AnchorKind = "after"
	AnchorBefore AnchorKind = "before"
	AnchorStart  AnchorKind = "start"
	AnchorEnd    AnchorKind = "end"
)

// SemanticInsertionPoint is the closed enum of generator-agnostic insertion
// locations resolved by the per-generator semantic catalog (spec.md §4.5.1).
type SemanticInsertionPoint string

const (
	StartOfFile           SemanticInsertionPoint = "start_of_file"
	EndOfFile             SemanticInsertionPoint = "end_of_file"
	AfterLicense          SemanticInsertionPoint = "after_license"
	AfterPackage          SemanticInsertionPoint = "after_package"
	EndOfImports          SemanticInsertionPoint = "end_of_imports"
	AfterClassDeclaration SemanticInsertionPoint = "after_class_declaration"
	AfterModelDeclaration SemanticInsertionPoint = "after_model_declaration"
	BeforeClassEnd        SemanticInsertionPoint = "before_class_end"
	AfterConstructor      SemanticInsertionPoint = "after_constructor"
	AfterFields           SemanticInsertionPoint = "after_fields"
	AfterGettersSetters   SemanticInsertionPoint = "after_getters_setters"
)

// ValidSemanticInsertionPoints is the closed set accepted in documents.
func ValidSemanticInsertionPoints() []SemanticInsertionPoint {
	return []SemanticInsertionPoint{
		StartOfFile, EndOfFile, AfterLicense, AfterPackage, EndOfImports,
		AfterClassDeclaration, AfterModelDeclaration, BeforeClassEnd,
		AfterConstructor, AfterFields, AfterGettersSetters,
	}
}

// SemanticReplacementKey names a semantic.variant replacement target. The
// catalog is data (see internal/customization/semantic.go), so new keys can
// be added without touching the engine.
type SemanticReplacementKey string

// Metadata is the optional CustomizationDocument.metadata block.
type Metadata struct {
	Name    string `yaml:"name,omitempty"`
	Version string `yaml:"version,omitempty"`
}

// ConditionSet is the boolean predicate algebra from spec.md §3. Exactly the
// populated fields participate in evaluation; combinators recurse.
type ConditionSet struct {
	GeneratorVersion    string         `yaml:"generatorVersion,omitempty"`
	TemplateContains    string         `yaml:"templateContains,omitempty"`
	TemplateNotContains string         `yaml:"templateNotContains,omitempty"`
	TemplateContainsAll []string       `yaml:"templateContainsAll,omitempty"`
	TemplateContainsAny []string       `yaml:"templateContainsAny,omitempty"`
	HasFeature          string         `yaml:"hasFeature,omitempty"`
	HasAllFeatures      []string       `yaml:"hasAllFeatures,omitempty"`
	HasAnyFeatures      []string       `yaml:"hasAnyFeatures,omitempty"`
	ProjectProperty     string         `yaml:"projectProperty,omitempty"`
	EnvironmentVariable string         `yaml:"environmentVariable,omitempty"`
	BuildType           string         `yaml:"buildType,omitempty"`
	AllOf               []ConditionSet `yaml:"allOf,omitempty"`
	AnyOf               []ConditionSet `yaml:"anyOf,omitempty"`
	Not                 *ConditionSet  `yaml:"not,omitempty"`
}

// IsEmpty reports whether no leaf or combinator was populated, i.e. the
// condition set is absent (document-level conditions are optional).
//
// AnyOf is checked against nil, not len() == 0: an explicit `anyOf: []`
// is a populated (if vacuous) combinator that must still reach
// evalCombinators and fail there, distinct from "no anyOf key at all".
func (c ConditionSet) IsEmpty() bool {
	return c.GeneratorVersion == "" && c.TemplateContains == "" &&
		c.TemplateNotContains == "" && len(c.TemplateContainsAll) == 0 &&
		len(c.TemplateContainsAny) == 0 && c.HasFeature == "" &&
		len(c.HasAllFeatures) == 0 && len(c.HasAnyFeatures) == 0 &&
		c.ProjectProperty == "" && c.EnvironmentVariable == "" &&
		c.BuildType == "" && len(c.AllOf) == 0 && c.AnyOf == nil && c.Not == nil
}

// Insertion adds content at an anchor point, with exactly one anchor
// populated among After/Before/At.
type Insertion struct {
	After      string        `yaml:"after,omitempty"`
	Before     string        `yaml:"before,omitempty"`
	At         string        `yaml:"at,omitempty"` // "start" | "end"
	Content    string        `yaml:"content"`
	Conditions *ConditionSet `yaml:"conditions,omitempty"`
	Fallback   *Insertion    `yaml:"fallback,omitempty"`
}

// Anchor reports which anchor kind is populated. Validation (C3) guarantees
// exactly one is set before the engine ever sees this value.
func (i Insertion) Anchor() AnchorKind {
	switch {
	case i.After != "":
		return AnchorAfter
	case i.Before != "":
		return AnchorBefore
	case i.At == string(AnchorEnd):
		return AnchorEnd
	default:
		return AnchorStart
	}
}

// Replacement substitutes Find with Replace, either as a literal
// (all occurrences) or as a regex (ReplaceAll semantics).
type Replacement struct {
	Find       string        `yaml:"find"`
	Replace    string        `yaml:"replace"`
	Type       PatternType   `yaml:"type,omitempty"`
	Conditions *ConditionSet `yaml:"conditions,omitempty"`
	Fallback   *Replacement  `yaml:"fallback,omitempty"`
}

// EffectiveType defaults an empty Type to literal per spec.md §3.
func (r Replacement) EffectiveType() PatternType {
	if r.Type == "" {
		return PatternLiteral
	}
	return r.Type
}

// FindPatternSpec is the `findPattern` discriminator of SmartReplacement:
// the first variant present in the body wins.
type FindPatternSpec struct {
	Type     PatternType `yaml:"type,omitempty"`
	Variants []string    `yaml:"variants"`
}

// SmartReplacement resolves its target via exactly one discriminator among
// FindAny / Semantic / FindPattern, then behaves like a literal replacement
// of the matched range.
type SmartReplacement struct {
	FindAny     []string         `yaml:"findAny,omitempty"`
	Semantic    string           `yaml:"semantic,omitempty"`
	FindPattern *FindPatternSpec `yaml:"findPattern,omitempty"`
	Replace     string           `yaml:"replace"`
	Conditions  *ConditionSet    `yaml:"conditions,omitempty"`
}

// InsertionPointPattern is one entry of findInsertionPoint.patterns: exactly
// one of After/Before is populated.
type InsertionPointPattern struct {
	After  string `yaml:"after,omitempty"`
	Before string `yaml:"before,omitempty"`
}

// FindInsertionPointSpec is the `findInsertionPoint` discriminator of
// SmartInsertion.
type FindInsertionPointSpec struct {
	Patterns []InsertionPointPattern `yaml:"patterns"`
}

// SmartInsertion mirrors SmartReplacement's resolution model for insertions:
// exactly one discriminator among FindInsertionPoint / Semantic.
type SmartInsertion struct {
	FindInsertionPoint *FindInsertionPointSpec `yaml:"findInsertionPoint,omitempty"`
	Semantic           SemanticInsertionPoint  `yaml:"semantic,omitempty"`
	Content            string                  `yaml:"content"`
	Conditions         *ConditionSet           `yaml:"conditions,omitempty"`
	Fallback           *Insertion              `yaml:"fallback,omitempty"`
}

// CustomizationDocument is the normalized, validated form of one
// customization YAML file (spec.md §3).
type CustomizationDocument struct {
	// ID is assigned at load time (not part of the YAML) and threads
	// through ResolvedTemplate.AppliedCustomizations for provenance.
	ID string `yaml:"-"`
	// TemplateName is the name this document targets, derived from its
	// file path at load time, not from the YAML body.
	TemplateName TemplateName `yaml:"-"`

	Metadata          *Metadata          `yaml:"metadata,omitempty"`
	Conditions        *ConditionSet      `yaml:"conditions,omitempty"`
	Insertions        []Insertion        `yaml:"insertions,omitempty"`
	Replacements      []Replacement      `yaml:"replacements,omitempty"`
	SmartReplacements []SmartReplacement `yaml:"smartReplacements,omitempty"`
	SmartInsertions   []SmartInsertion   `yaml:"smartInsertions,omitempty"`
	Partials          map[string]string  `yaml:"partials,omitempty"`
}

// HasAnyOperation reports whether the document declares at least one
// insertion/replacement/smart* operation, as required by spec.md §3.
func (d CustomizationDocument) HasAnyOperation() bool {
	return len(d.Insertions) > 0 || len(d.Replacements) > 0 ||
		len(d.SmartReplacements) > 0 || len(d.SmartInsertions) > 0
}
