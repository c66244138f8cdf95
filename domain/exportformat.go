package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/c360studio/specintel/template"
)

// mimeTypeRe matches the type/subtype shape (e.g. "text/markdown",
// "application/ld+json").
var mimeTypeRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*$`)

// ExportFormat declares one output format a domain can export
// specifications to. The template it references is resolved by an
// external renderer; the engine only validates and carries the metadata.
type ExportFormat struct {
	// FormatID uniquely identifies the format. Stable: never reused
	// across unrelated formats.
	FormatID string `yaml:"format_id" json:"format_id"`

	// Name is the human-readable format name.
	Name string `yaml:"name" json:"name"`

	// FileExtension is the output file extension, with leading dot.
	FileExtension string `yaml:"file_extension" json:"file_extension"`

	// MIMEType is the standard MIME type (type/subtype).
	MIMEType string `yaml:"mime_type" json:"mime_type"`

	// TemplateID is an opaque reference resolved by an external renderer.
	// Unique within one exporter set.
	TemplateID string `yaml:"template_id" json:"template_id"`
}

// ExportFormatKind describes export formats to the template engine.
func ExportFormatKind() template.Kind[ExportFormat] {
	return template.Kind[ExportFormat]{
		Name:     "export_format",
		KeyField: "format_id",
		Key:      func(f ExportFormat) string { return f.FormatID },
		Check: func(f ExportFormat) []template.ValidationIssue {
			var issues []template.ValidationIssue
			if f.FormatID == "" {
				issues = append(issues, template.MissingField(f.FormatID, "format_id"))
			}
			if f.Name == "" {
				issues = append(issues, template.MissingField(f.FormatID, "name"))
			}
			switch {
			case f.FileExtension == "":
				issues = append(issues, template.MissingField(f.FormatID, "file_extension"))
			case !strings.HasPrefix(f.FileExtension, "."):
				issues = append(issues, template.ValidationIssue{
					Code:     template.IssueIllegalValue,
					RecordID: f.FormatID,
					Field:    "file_extension",
					Message:  fmt.Sprintf("file extension %q must start with %q", f.FileExtension, "."),
				})
			}
			switch {
			case f.MIMEType == "":
				issues = append(issues, template.MissingField(f.FormatID, "mime_type"))
			case !mimeTypeRe.MatchString(f.MIMEType):
				issues = append(issues, template.ValidationIssue{
					Code:     template.IssueIllegalValue,
					RecordID: f.FormatID,
					Field:    "mime_type",
					Message:  fmt.Sprintf("mime type %q does not match type/subtype", f.MIMEType),
				})
			}
			if f.TemplateID == "" {
				issues = append(issues, template.MissingField(f.FormatID, "template_id"))
			}
			return issues
		},
		Fields: map[string]func(ExportFormat) []string{
			"format_id":      func(f ExportFormat) []string { return []string{f.FormatID} },
			"file_extension": func(f ExportFormat) []string { return []string{f.FileExtension} },
			"mime_type":      func(f ExportFormat) []string { return []string{f.MIMEType} },
			"template_id":    func(f ExportFormat) []string { return []string{f.TemplateID} },
		},
		// template_id is unique per set in addition to format_id.
		Extra: func(formats []ExportFormat) []template.ValidationIssue {
			var issues []template.ValidationIssue
			seen := make(map[string]int)
			for i, f := range formats {
				if f.TemplateID == "" {
					continue
				}
				if first, dup := seen[f.TemplateID]; dup {
					issues = append(issues, template.ValidationIssue{
						Code:     template.IssueDuplicateID,
						RecordID: f.FormatID,
						Field:    "template_id",
						Message: fmt.Sprintf("duplicate template_id %q: records %d and %d share the same template",
							f.TemplateID, first, i),
					})
					continue
				}
				seen[f.TemplateID] = i
			}
			return issues
		},
	}
}

// NewExportFormatEngine creates a template engine for export formats.
func NewExportFormatEngine() *template.Engine[ExportFormat] {
	return template.NewEngine(ExportFormatKind())
}
