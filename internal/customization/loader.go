// Package customization implements C3 (loading and validating the
// customization YAML DSL) and C5 (applying a validated document to a
// template body).
package customization

import (
	"bytes"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// maxAliasCount bounds the number of YAML aliases a single document may
// contain (spec.md §4.3), closing off alias-expansion ("billion laughs")
// denial-of-service documents before they reach the decoder.
const maxAliasCount = 50

// knownTags are the implicit YAML 1.1 core-schema tags gopkg.in/yaml.v3
// assigns itself; anything else is a custom tag and is rejected
// (anti-deserialization-gadget, spec.md §4.3).
var knownTags = map[string]bool{
	"!!map": true, "!!seq": true, "!!str": true, "!!int": true,
	"!!float": true, "!!bool": true, "!!null": true, "!!timestamp": true,
	"!!binary": true, "!!merge": true,
}

// Load parses and validates one customization document's raw YAML bytes and
// normalizes it to a domain.CustomizationDocument. name and idGen populate
// the two non-YAML fields (TemplateName, ID) not carried by the file itself.
//
// Every structural and security problem is collected before returning so
// the caller can report the full list (spec.md §4.3), not just the first.
func Load(data []byte, name domain.TemplateName, idGen domain.DocumentIDGenerator, path string) (*domain.CustomizationDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &domain.YamlError{Path: path, Issues: []string{err.Error()}}
	}
	if root.Kind == 0 {
		// Empty document: treated as a schema violation since at least one
		// operation list must be non-empty.
		return nil, &domain.YamlError{Path: path, Issues: []string{"document is empty"}}
	}

	var issues []string
	aliasCount := 0
	walkSafety(&root, map[*yaml.Node]bool{}, &aliasCount, &issues)
	if aliasCount > maxAliasCount {
		issues = append(issues, fmt.Sprintf("alias count %d exceeds limit %d", aliasCount, maxAliasCount))
	}
	if len(issues) > 0 {
		return nil, &domain.YamlError{Path: path, Issues: issues}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc domain.CustomizationDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, &domain.YamlError{Path: path, Issues: []string{err.Error()}}
	}

	issues = append(issues, validateStructure(&doc)...)
	issues = append(issues, scanDangerousTokens(&doc)...)
	if len(issues) > 0 {
		return nil, &domain.YamlError{Path: path, Issues: issues}
	}

	doc.TemplateName = name
	id, err := idGen.NewID()
	if err != nil {
		return nil, &domain.YamlError{Path: path, Issues: []string{fmt.Sprintf("assigning document id: %v", err)}}
	}
	doc.ID = id
	return &doc, nil
}

// walkSafety recurses the raw node tree rejecting custom tags and recursive
// anchors (an alias that resolves back into one of its own ancestors) while
// counting aliases for the bound check.
func walkSafety(n *yaml.Node, ancestors map[*yaml.Node]bool, aliasCount *int, issues *[]string) {
	if n == nil {
		return
	}
	if n.Kind == yaml.AliasNode {
		*aliasCount++
		if n.Alias != nil && ancestors[n.Alias] {
			*issues = append(*issues, fmt.Sprintf("line %d: recursive anchor %q", n.Line, n.Value))
			return
		}
		if n.Alias != nil {
			walkSafety(n.Alias, ancestors, aliasCount, issues)
		}
		return
	}
	if n.Tag != "" && !knownTags[n.Tag] && n.Tag != "!!seq" {
		*issues = append(*issues, fmt.Sprintf("line %d: custom tag %q is not permitted", n.Line, n.Tag))
	}
	if n.Anchor != "" {
		ancestors = cloneMark(ancestors)
		ancestors[n] = true
	}
	if n.Kind == yaml.MappingNode {
		seen := map[string]bool{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind == yaml.ScalarNode {
				if seen[key.Value] {
					*issues = append(*issues, fmt.Sprintf("line %d: duplicate key %q", key.Line, key.Value))
				}
				seen[key.Value] = true
			}
		}
	}
	for _, c := range n.Content {
		walkSafety(c, ancestors, aliasCount, issues)
	}
}

func cloneMark(m map[*yaml.Node]bool) map[*yaml.Node]bool {
	out := make(map[*yaml.Node]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func validateStructure(doc *domain.CustomizationDocument) []string {
	var issues []string
	if !doc.HasAnyOperation() {
		issues = append(issues, "document declares no insertions, replacements, smartReplacements, or smartInsertions")
	}
	for i, ins := range doc.Insertions {
		if err := validateInsertion(ins); err != "" {
			issues = append(issues, fmt.Sprintf("insertions[%d]: %s", i, err))
		}
	}
	for i, rep := range doc.Replacements {
		if err := validateReplacement(rep); err != "" {
			issues = append(issues, fmt.Sprintf("replacements[%d]: %s", i, err))
		}
	}
	for i, sr := range doc.SmartReplacements {
		if err := validateSmartReplacement(sr); err != "" {
			issues = append(issues, fmt.Sprintf("smartReplacements[%d]: %s", i, err))
		}
	}
	for i, si := range doc.SmartInsertions {
		if err := validateSmartInsertion(si); err != "" {
			issues = append(issues, fmt.Sprintf("smartInsertions[%d]: %s", i, err))
		}
	}
	return issues
}

func validateInsertion(i domain.Insertion) string {
	anchors := 0
	if i.After != "" {
		anchors++
	}
	if i.Before != "" {
		anchors++
	}
	if i.At != "" {
		anchors++
		if i.At != "start" && i.At != "end" {
			return fmt.Sprintf("at must be \"start\" or \"end\", got %q", i.At)
		}
	}
	if anchors != 1 {
		return fmt.Sprintf("exactly one of after/before/at is required, got %d", anchors)
	}
	if i.Fallback != nil {
		if err := validateInsertion(*i.Fallback); err != "" {
			return "fallback: " + err
		}
	}
	return ""
}

func validateReplacement(r domain.Replacement) string {
	if r.Find == "" {
		return "find is required"
	}
	if r.Type != "" && r.Type != domain.PatternLiteral && r.Type != domain.PatternRegex {
		return fmt.Sprintf("type must be \"literal\" or \"regex\", got %q", r.Type)
	}
	if r.EffectiveType() == domain.PatternRegex {
		if _, err := regexp.Compile(r.Find); err != nil {
			return fmt.Sprintf("find does not compile as regex: %v", err)
		}
	}
	if r.Fallback != nil {
		if err := validateReplacement(*r.Fallback); err != "" {
			return "fallback: " + err
		}
	}
	return ""
}

func validateSmartReplacement(sr domain.SmartReplacement) string {
	discriminators := 0
	if len(sr.FindAny) > 0 {
		discriminators++
	}
	if sr.Semantic != "" {
		discriminators++
	}
	if sr.FindPattern != nil {
		discriminators++
		if len(sr.FindPattern.Variants) == 0 {
			return "findPattern.variants must be non-empty"
		}
		if sr.FindPattern.Type == domain.PatternRegex {
			for _, v := range sr.FindPattern.Variants {
				if _, err := regexp.Compile(v); err != nil {
					return fmt.Sprintf("findPattern variant does not compile as regex: %v", err)
				}
			}
		}
	}
	if discriminators != 1 {
		return fmt.Sprintf("exactly one of findAny/semantic/findPattern is required, got %d", discriminators)
	}
	return ""
}

func validateSmartInsertion(si domain.SmartInsertion) string {
	discriminators := 0
	if si.FindInsertionPoint != nil {
		discriminators++
		if len(si.FindInsertionPoint.Patterns) == 0 {
			return "findInsertionPoint.patterns must be non-empty"
		}
		for i, p := range si.FindInsertionPoint.Patterns {
			if (p.After == "") == (p.Before == "") {
				return fmt.Sprintf("findInsertionPoint.patterns[%d]: exactly one of after/before is required", i)
			}
		}
	}
	if si.Semantic != "" {
		discriminators++
		valid := false
		for _, v := range domain.ValidSemanticInsertionPoints() {
			if v == si.Semantic {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Sprintf("semantic %q is not a recognized semantic insertion point", si.Semantic)
		}
	}
	if discriminators != 1 {
		return fmt.Sprintf("exactly one of findInsertionPoint/semantic is required, got %d", discriminators)
	}
	if si.Fallback != nil {
		if err := validateInsertion(*si.Fallback); err != "" {
			return "fallback: " + err
		}
	}
	return ""
}

func scanDangerousTokens(doc *domain.CustomizationDocument) []string {
	var issues []string
	check := func(field, value string) {
		if tok := findDangerousToken(value); tok != "" {
			issues = append(issues, fmt.Sprintf("%s contains forbidden token %q", field, tok))
		}
	}
	var checkInsertion func(prefix string, i domain.Insertion)
	checkInsertion = func(prefix string, i domain.Insertion) {
		check(prefix+".content", i.Content)
		if i.Fallback != nil {
			checkInsertion(prefix+".fallback", *i.Fallback)
		}
	}
	for idx, i := range doc.Insertions {
		checkInsertion(fmt.Sprintf("insertions[%d]", idx), i)
	}
	var checkReplacement func(prefix string, r domain.Replacement)
	checkReplacement = func(prefix string, r domain.Replacement) {
		check(prefix+".find", r.Find)
		check(prefix+".replace", r.Replace)
		if r.Fallback != nil {
			checkReplacement(prefix+".fallback", *r.Fallback)
		}
	}
	for idx, r := range doc.Replacements {
		checkReplacement(fmt.Sprintf("replacements[%d]", idx), r)
	}
	for idx, sr := range doc.SmartReplacements {
		prefix := fmt.Sprintf("smartReplacements[%d]", idx)
		check(prefix+".replace", sr.Replace)
		for i, v := range sr.FindAny {
			check(fmt.Sprintf("%s.findAny[%d]", prefix, i), v)
		}
		if sr.FindPattern != nil {
			for i, v := range sr.FindPattern.Variants {
				check(fmt.Sprintf("%s.findPattern.variants[%d]", prefix, i), v)
			}
		}
	}
	for idx, si := range doc.SmartInsertions {
		check(fmt.Sprintf("smartInsertions[%d].content", idx), si.Content)
		if si.Fallback != nil {
			checkInsertion(fmt.Sprintf("smartInsertions[%d].fallback", idx), *si.Fallback)
		}
	}
	for name, body := range doc.Partials {
		check(fmt.Sprintf("partials[%s]", name), body)
	}
	return issues
}
