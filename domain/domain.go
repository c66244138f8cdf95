// Package domain bundles one knowledge area's configuration: categories,
// questions, export formats, conflict rules, and quality-analyzer
// declarations. Domains are loaded from YAML documents, validated through
// the four template engines, and served by a lazy caching registry.
package domain

import (
	"fmt"
	"os"

	"github.com/c360studio/specintel/template"
	"gopkg.in/yaml.v3"
)

// Document is the YAML structure of one domain configuration document.
type Document struct {
	DomainID      string            `yaml:"domain_id" json:"domain_id"`
	Name          string            `yaml:"name" json:"name"`
	Version       string            `yaml:"version" json:"version"`
	Categories    []string          `yaml:"categories" json:"categories"`
	Questions     []Question        `yaml:"questions,omitempty" json:"questions,omitempty"`
	ExportFormats []ExportFormat    `yaml:"export_formats,omitempty" json:"export_formats,omitempty"`
	ConflictRules []ConflictRule    `yaml:"conflict_rules,omitempty" json:"conflict_rules,omitempty"`
	Analyzers     []QualityAnalyzer `yaml:"analyzers,omitempty" json:"analyzers,omitempty"`
}

// LoadDocument reads a domain configuration document from disk. The
// document is parsed but not validated; pass the result to New (or let
// the registry do it) to get a validated Domain.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domain document: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse domain document %s: %w", path, err)
	}
	return &doc, nil
}

// PeekDomainID reads only the domain_id field of a document, so callers
// can register a lazy constructor without paying for a full load.
func PeekDomainID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read domain document: %w", err)
	}
	var head struct {
		DomainID string `yaml:"domain_id"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("parse domain document %s: %w", path, err)
	}
	if head.DomainID == "" {
		return "", fmt.Errorf("domain document %s has no domain_id", path)
	}
	return head.DomainID, nil
}

// Domain is an immutable bundle of one knowledge area's configuration.
// A configuration change requires constructing a new Domain and replacing
// the registry entry; a constructed Domain is never mutated.
type Domain struct {
	id         string
	name       string
	version    string
	categories []string
	questions  []Question
	formats    []ExportFormat
	rules      []ConflictRule
	analyzers  []QualityAnalyzer

	questionEngine *template.Engine[Question]
	formatEngine   *template.Engine[ExportFormat]
	ruleEngine     *template.Engine[ConflictRule]
	analyzerEngine *template.Engine[QualityAnalyzer]
}

// New builds a Domain from a parsed document without validating the
// record sets. The registry validates on first Get; callers constructing
// domains directly should call Validate themselves.
func New(doc *Document) (*Domain, error) {
	if doc.DomainID == "" {
		return nil, fmt.Errorf("domain document has no domain_id")
	}
	return &Domain{
		id:             doc.DomainID,
		name:           doc.Name,
		version:        doc.Version,
		categories:     append([]string(nil), doc.Categories...),
		questions:      append([]Question(nil), doc.Questions...),
		formats:        append([]ExportFormat(nil), doc.ExportFormats...),
		rules:          append([]ConflictRule(nil), doc.ConflictRules...),
		analyzers:      append([]QualityAnalyzer(nil), doc.Analyzers...),
		questionEngine: NewQuestionEngine(),
		formatEngine:   NewExportFormatEngine(),
		ruleEngine:     NewConflictRuleEngine(),
		analyzerEngine: NewQualityAnalyzerEngine(),
	}, nil
}

// ID returns the domain identifier.
func (d *Domain) ID() string { return d.id }

// Name returns the human-readable domain name.
func (d *Domain) Name() string { return d.name }

// Version returns the domain configuration version.
func (d *Domain) Version() string { return d.version }

// Categories returns a copy of the domain's category list.
func (d *Domain) Categories() []string {
	return append([]string(nil), d.categories...)
}

// Questions returns a copy of the domain's question set.
func (d *Domain) Questions() []Question {
	return append([]Question(nil), d.questions...)
}

// ExportFormats returns a copy of the domain's export-format set.
func (d *Domain) ExportFormats() []ExportFormat {
	return append([]ExportFormat(nil), d.formats...)
}

// ConflictRules returns a copy of the domain's conflict-rule set.
func (d *Domain) ConflictRules() []ConflictRule {
	return append([]ConflictRule(nil), d.rules...)
}

// Analyzers returns a copy of the domain's quality-analyzer set.
func (d *Domain) Analyzers() []QualityAnalyzer {
	return append([]QualityAnalyzer(nil), d.analyzers...)
}

// Validate runs all four engines over the domain's record sets plus
// domain-level structural checks, returning every issue found. Empty
// means the domain is well-formed.
func (d *Domain) Validate() []template.ValidationIssue {
	var issues []template.ValidationIssue

	if len(d.categories) == 0 {
		issues = append(issues, template.ValidationIssue{
			Kind:    "domain",
			Code:    template.IssueMissingField,
			Field:   "categories",
			Message: fmt.Sprintf("domain %q declares no categories", d.id),
		})
	}
	seen := make(map[string]bool)
	for _, cat := range d.categories {
		if seen[cat] {
			issues = append(issues, template.ValidationIssue{
				Kind:     "domain",
				Code:     template.IssueDuplicateID,
				RecordID: cat,
				Field:    "categories",
				Message:  fmt.Sprintf("category %q listed more than once", cat),
			})
		}
		seen[cat] = true
	}

	issues = append(issues, d.questionEngine.Validate(d.questions)...)
	issues = append(issues, d.formatEngine.Validate(d.formats)...)
	issues = append(issues, d.ruleEngine.Validate(d.rules)...)
	issues = append(issues, d.analyzerEngine.Validate(d.analyzers)...)
	return issues
}

// QuestionsByCategory returns the questions in one category, in source
// order.
func (d *Domain) QuestionsByCategory(category string) []Question {
	got, _ := d.questionEngine.FilterBy(d.questions, "category", category)
	return got
}

// RulesBySeverity returns the conflict rules with the given severity, in
// source order.
func (d *Domain) RulesBySeverity(severity Severity) []ConflictRule {
	got, _ := d.ruleEngine.FilterBy(d.rules, "severity", string(severity))
	return got
}

// EnabledAnalyzers returns the analyzers with Enabled=true, in source
// order.
func (d *Domain) EnabledAnalyzers() []QualityAnalyzer {
	got, _ := d.analyzerEngine.FilterBy(d.analyzers, "enabled", "true")
	return got
}

// AnalyzersByTag returns the analyzers carrying the given tag, in source
// order.
func (d *Domain) AnalyzersByTag(tag string) []QualityAnalyzer {
	got, _ := d.analyzerEngine.FilterBy(d.analyzers, "tags", tag)
	return got
}

// ExportFormat looks up one export format by ID.
func (d *Domain) ExportFormat(formatID string) (ExportFormat, bool) {
	for _, f := range d.formats {
		if f.FormatID == formatID {
			return f, true
		}
	}
	return ExportFormat{}, false
}

// HasCategory reports whether the domain declares the given category.
func (d *Domain) HasCategory(category string) bool {
	for _, c := range d.categories {
		if c == category {
			return true
		}
	}
	return false
}

// ToDocument serializes the domain back into its document form, the
// inverse of New for any valid domain.
func (d *Domain) ToDocument() *Document {
	return &Document{
		DomainID:      d.id,
		Name:          d.name,
		Version:       d.version,
		Categories:    d.Categories(),
		Questions:     d.Questions(),
		ExportFormats: d.ExportFormats(),
		ConflictRules: d.ConflictRules(),
		Analyzers:     d.Analyzers(),
	}
}
