package domain

import (
	"github.com/c360studio/specintel/template"
)

// QualityAnalyzer declares one quality check a domain wants run against
// its specifications. The analysis logic lives outside the engine; this
// record only tracks which analyzers exist and their on/off/required
// state.
type QualityAnalyzer struct {
	// AnalyzerID uniquely identifies the analyzer within a domain.
	AnalyzerID string `yaml:"analyzer_id" json:"analyzer_id"`

	// Name is the human-readable analyzer name.
	Name string `yaml:"name" json:"name"`

	// AnalyzerType classifies the analyzer (e.g. "bias", "security",
	// "accessibility"). Free-form; domains define their own types.
	AnalyzerType string `yaml:"analyzer_type" json:"analyzer_type"`

	// Enabled controls whether the scorer runs this analyzer.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Required marks analyzers whose absence makes a maturity score
	// non-authoritative.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`

	// Tags support filtering and grouping analyzer sets.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// QualityAnalyzerKind describes quality analyzers to the template engine.
func QualityAnalyzerKind() template.Kind[QualityAnalyzer] {
	return template.Kind[QualityAnalyzer]{
		Name:     "quality_analyzer",
		KeyField: "analyzer_id",
		Key:      func(a QualityAnalyzer) string { return a.AnalyzerID },
		Check: func(a QualityAnalyzer) []template.ValidationIssue {
			var issues []template.ValidationIssue
			if a.AnalyzerID == "" {
				issues = append(issues, template.MissingField(a.AnalyzerID, "analyzer_id"))
			}
			if a.Name == "" {
				issues = append(issues, template.MissingField(a.AnalyzerID, "name"))
			}
			if a.AnalyzerType == "" {
				issues = append(issues, template.MissingField(a.AnalyzerID, "analyzer_type"))
			}
			return issues
		},
		Fields: map[string]func(QualityAnalyzer) []string{
			"analyzer_id":   func(a QualityAnalyzer) []string { return []string{a.AnalyzerID} },
			"analyzer_type": func(a QualityAnalyzer) []string { return []string{a.AnalyzerType} },
			"enabled":       func(a QualityAnalyzer) []string { return []string{boolString(a.Enabled)} },
			"required":      func(a QualityAnalyzer) []string { return []string{boolString(a.Required)} },
			"tags":          func(a QualityAnalyzer) []string { return a.Tags },
		},
	}
}

// NewQualityAnalyzerEngine creates a template engine for quality analyzers.
func NewQualityAnalyzerEngine() *template.Engine[QualityAnalyzer] {
	return template.NewEngine(QualityAnalyzerKind())
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
