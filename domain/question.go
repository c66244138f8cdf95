package domain

import (
	"github.com/c360studio/specintel/template"
)

// Difficulty levels a question may declare. Optional; empty means
// unspecified.
const (
	DifficultyBasic        = "basic"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

var difficulties = []string{DifficultyBasic, DifficultyIntermediate, DifficultyAdvanced}

// Question is one clarifying question a domain declares for a category.
// The engine only carries questions as domain metadata; asking them is
// the surrounding service's job.
type Question struct {
	// ID uniquely identifies the question within a domain.
	ID string `yaml:"id" json:"id"`

	// Category places the question in one of the domain's categories.
	Category string `yaml:"category" json:"category"`

	// Text is the question itself.
	Text string `yaml:"text" json:"text"`

	// HelpText gives the answerer background on why the question matters.
	HelpText string `yaml:"help_text,omitempty" json:"help_text,omitempty"`

	// Difficulty is basic, intermediate, or advanced. Optional.
	Difficulty string `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`

	// DependsOn lists question IDs that should be answered first.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// QuestionKind describes questions to the template engine.
func QuestionKind() template.Kind[Question] {
	return template.Kind[Question]{
		Name:     "question",
		KeyField: "id",
		Key:      func(q Question) string { return q.ID },
		Check: func(q Question) []template.ValidationIssue {
			var issues []template.ValidationIssue
			if q.ID == "" {
				issues = append(issues, template.MissingField(q.ID, "id"))
			}
			if q.Category == "" {
				issues = append(issues, template.MissingField(q.ID, "category"))
			}
			if q.Text == "" {
				issues = append(issues, template.MissingField(q.ID, "text"))
			}
			if q.Difficulty != "" && !contains(difficulties, q.Difficulty) {
				issues = append(issues, template.IllegalValue(q.ID, "difficulty", q.Difficulty, difficulties))
			}
			return issues
		},
		Fields: map[string]func(Question) []string{
			"id":         func(q Question) []string { return []string{q.ID} },
			"category":   func(q Question) []string { return []string{q.Category} },
			"difficulty": func(q Question) []string { return []string{q.Difficulty} },
			"depends_on": func(q Question) []string { return q.DependsOn },
		},
	}
}

// NewQuestionEngine creates a template engine for questions.
func NewQuestionEngine() *template.Engine[Question] {
	return template.NewEngine(QuestionKind())
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
