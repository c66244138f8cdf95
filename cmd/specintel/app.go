package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/c360studio/specintel/config"
	"github.com/c360studio/specintel/conflict"
	"github.com/c360studio/specintel/domain"
	"github.com/c360studio/specintel/maturity"
	"github.com/c360studio/specintel/specification"
)

// app carries the shared command state: output stream, format, logger.
type app struct {
	out     io.Writer
	logger  *slog.Logger
	jsonOut bool
}

// emit writes v as indented JSON.
func (a *app) emit(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadDomain parses and validates a domain document, failing with
// *domain.DomainConfigError when the document has issues.
func loadDomain(path string) (*domain.Domain, error) {
	doc, err := domain.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	dom, err := domain.New(doc)
	if err != nil {
		return nil, err
	}
	if issues := dom.Validate(); len(issues) > 0 {
		return nil, &domain.DomainConfigError{DomainID: dom.ID(), Issues: issues}
	}
	return dom, nil
}

type documentReport struct {
	Path     string   `json:"path"`
	DomainID string   `json:"domain_id,omitempty"`
	Valid    bool     `json:"valid"`
	Issues   []string `json:"issues,omitempty"`
}

func (a *app) runValidate(paths []string) error {
	reports := make([]documentReport, 0, len(paths))
	failed := 0

	for _, path := range paths {
		rep := documentReport{Path: path, Valid: true}

		doc, err := domain.LoadDocument(path)
		if err != nil {
			rep.Valid = false
			rep.Issues = append(rep.Issues, err.Error())
			reports = append(reports, rep)
			failed++
			continue
		}
		dom, err := domain.New(doc)
		if err != nil {
			rep.Valid = false
			rep.Issues = append(rep.Issues, err.Error())
			reports = append(reports, rep)
			failed++
			continue
		}
		rep.DomainID = dom.ID()
		for _, issue := range dom.Validate() {
			rep.Issues = append(rep.Issues, issue.String())
		}
		if len(rep.Issues) > 0 {
			rep.Valid = false
			failed++
		}
		reports = append(reports, rep)
	}

	if a.jsonOut {
		if err := a.emit(reports); err != nil {
			return err
		}
	} else {
		for _, rep := range reports {
			if rep.Valid {
				fmt.Fprintf(a.out, "ok   %s (%s)\n", rep.Path, rep.DomainID)
				continue
			}
			fmt.Fprintf(a.out, "FAIL %s\n", rep.Path)
			for _, issue := range rep.Issues {
				fmt.Fprintf(a.out, "     %s\n", issue)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(paths))
	}
	return nil
}

type domainSummary struct {
	ID            string   `json:"domain_id"`
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Categories    []string `json:"categories"`
	Questions     int      `json:"questions"`
	ExportFormats int      `json:"export_formats"`
	ConflictRules int      `json:"conflict_rules"`
	Analyzers     int      `json:"analyzers"`
}

func summarize(dom *domain.Domain) domainSummary {
	return domainSummary{
		ID:            dom.ID(),
		Name:          dom.Name(),
		Version:       dom.Version(),
		Categories:    dom.Categories(),
		Questions:     len(dom.Questions()),
		ExportFormats: len(dom.ExportFormats()),
		ConflictRules: len(dom.ConflictRules()),
		Analyzers:     len(dom.Analyzers()),
	}
}

func (a *app) runDomains(ctx context.Context, configDir, domainID string) error {
	registry := domain.NewRegistry(a.logger)
	loader := config.NewLoader(a.logger)
	if _, err := loader.RegisterAll(configDir, registry); err != nil {
		return err
	}

	if domainID != "" {
		dom, err := registry.Get(domainID)
		if err != nil {
			return err
		}
		summary := summarize(dom)
		if a.jsonOut {
			return a.emit(summary)
		}
		fmt.Fprintf(a.out, "%s (%s) v%s\n", summary.ID, summary.Name, summary.Version)
		fmt.Fprintf(a.out, "  categories:     %v\n", summary.Categories)
		fmt.Fprintf(a.out, "  questions:      %d\n", summary.Questions)
		fmt.Fprintf(a.out, "  export formats: %d\n", summary.ExportFormats)
		fmt.Fprintf(a.out, "  conflict rules: %d\n", summary.ConflictRules)
		fmt.Fprintf(a.out, "  analyzers:      %d\n", summary.Analyzers)
		return nil
	}

	ids := registry.ListIDs()
	if a.jsonOut {
		return a.emit(ids)
	}
	if len(ids) == 0 {
		fmt.Fprintf(a.out, "no domain documents found under %s\n", configDir)
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	return nil
}

func (a *app) runDetect(ctx context.Context, domainPath, snapshotPath, projectID string) error {
	dom, err := loadDomain(domainPath)
	if err != nil {
		return err
	}
	store, err := specification.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	snapshot, err := store.GetCurrentSpecifications(ctx, projectID)
	if err != nil {
		return err
	}

	detector, err := conflict.NewDetector(conflict.NewConditionEvaluator(), conflict.WithLogger(a.logger))
	if err != nil {
		return err
	}
	result, err := detector.Detect(ctx, dom, projectID, snapshot)
	if err != nil {
		return err
	}

	if a.jsonOut {
		return a.emit(result)
	}
	fmt.Fprintf(a.out, "run %s: %d conflicts in project %s (domain %s)\n",
		result.RunID, len(result.Conflicts), projectID, dom.ID())
	for _, c := range result.Conflicts {
		fmt.Fprintf(a.out, "  [%s] %s: %s (specs: %v)\n",
			c.Severity.Presentation(), c.RuleID, c.Message, c.SpecIDs)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(a.out, "  skipped rule %s: %s\n", w.RuleID, w.Reason)
	}
	if len(result.Conflicts) > 0 {
		return fmt.Errorf("%d conflicts found", len(result.Conflicts))
	}
	return nil
}

func (a *app) runScore(ctx context.Context, domainPath, snapshotPath, projectID string) error {
	dom, err := loadDomain(domainPath)
	if err != nil {
		return err
	}
	store, err := specification.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	snapshot, err := store.GetCurrentSpecifications(ctx, projectID)
	if err != nil {
		return err
	}

	// Detection feeds the penalty: every error-severity conflict found
	// in this run counts as open.
	detector, err := conflict.NewDetector(conflict.NewConditionEvaluator(), conflict.WithLogger(a.logger))
	if err != nil {
		return err
	}
	result, err := detector.Detect(ctx, dom, projectID, snapshot)
	if err != nil {
		return err
	}
	errorConflicts := 0
	for _, c := range result.Conflicts {
		if c.Severity == domain.SeverityError {
			errorConflicts++
		}
	}

	scorer := maturity.NewScorer(maturity.WithLogger(a.logger))
	report, err := scorer.Score(ctx, dom, maturity.Input{
		ProjectID:          projectID,
		Snapshot:           snapshot,
		OpenErrorConflicts: errorConflicts,
	})
	if err != nil {
		return err
	}

	if a.jsonOut {
		return a.emit(report)
	}
	fmt.Fprintf(a.out, "project %s (domain %s): score %.1f\n", projectID, dom.ID(), report.Score)
	fmt.Fprintf(a.out, "  coverage %.1f, penalty %.1f", report.CoverageScore, report.Penalty)
	if report.Incomplete {
		fmt.Fprintf(a.out, " (incomplete: required analyzer disabled)")
	}
	fmt.Fprintln(a.out)
	for _, cat := range report.Categories {
		mark := " "
		if cat.Covered {
			mark = "x"
		}
		fmt.Fprintf(a.out, "  [%s] %-20s %d specs (weight %.1f)\n", mark, cat.Category, cat.SpecCount, cat.Weight)
	}
	for _, id := range report.SkippedAnalyzers {
		fmt.Fprintf(a.out, "  analyzer skipped: %s\n", id)
	}
	return nil
}

// loadOrCreateStore loads a snapshot file, returning an empty store when
// the file does not exist yet.
func loadOrCreateStore(path string) (*specification.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return specification.NewStore(), nil
	}
	return specification.LoadSnapshot(path)
}

func (a *app) printSpec(spec *specification.Specification) error {
	if a.jsonOut {
		return a.emit(spec)
	}
	fmt.Fprintf(a.out, "%s %s/%s v%d [%s]", spec.ID, spec.ProjectID, spec.Key, spec.Version, spec.Status)
	if spec.IsCurrent {
		fmt.Fprintf(a.out, " (current)")
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) runSpecCreate(snapshotPath, projectID, category, key, value string) error {
	store, err := loadOrCreateStore(snapshotPath)
	if err != nil {
		return err
	}
	spec, err := store.Create(projectID, category, key, value)
	if err != nil {
		return err
	}
	if err := store.SaveSnapshot(snapshotPath); err != nil {
		return err
	}
	return a.printSpec(spec)
}

func (a *app) runSpecNewVersion(snapshotPath, projectID, key, value string) error {
	store, err := specification.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	spec, err := store.CreateVersion(projectID, key, value)
	if err != nil {
		return err
	}
	if err := store.SaveSnapshot(snapshotPath); err != nil {
		return err
	}
	return a.printSpec(spec)
}

func (a *app) runSpecTransition(snapshotPath, specID string, target specification.Status) error {
	if !target.Valid() {
		return fmt.Errorf("unknown status %q", target)
	}
	store, err := specification.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	spec, err := store.TransitionStatus(specID, target)
	if err != nil {
		return err
	}
	if err := store.SaveSnapshot(snapshotPath); err != nil {
		return err
	}
	return a.printSpec(spec)
}

func (a *app) runSpecHistory(snapshotPath, projectID, key string) error {
	store, err := specification.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	versions, err := store.History(projectID, key)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return a.emit(versions)
	}
	for i := range versions {
		if err := a.printSpec(&versions[i]); err != nil {
			return err
		}
	}
	return nil
}
