// Package config discovers domain configuration documents on disk and
// binds them to the domain registry. Documents are YAML files matching
// the discovery patterns; each registers a lazy constructor so a domain
// is only parsed and validated when first requested.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/specintel/domain"
)

// DefaultPatterns are the glob patterns Discover uses when the caller
// supplies none. Both flat domains/ directories and nested *.domain.yaml
// trees are supported.
var DefaultPatterns = []string{
	"domains/*.yaml",
	"domains/*.yml",
	"**/*.domain.yaml",
}

// Loader discovers and registers domain configuration documents.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Discover returns the domain documents under root matching the given
// glob patterns (DefaultPatterns when none are supplied), deduplicated
// and sorted for deterministic registration order.
func (l *Loader) Discover(root string, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("config root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config root is not a directory: %s", root)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			abs := filepath.Join(root, filepath.FromSlash(m))
			if !seen[abs] {
				seen[abs] = true
				paths = append(paths, abs)
			}
		}
	}
	sort.Strings(paths)

	l.logger.Debug("Discovered domain documents",
		"root", root,
		"count", len(paths))
	return paths, nil
}

// RegisterAll discovers domain documents under root and registers a lazy
// constructor for each with the registry. Only the domain_id field is
// read eagerly; the full document is parsed and validated on the first
// registry Get. A document whose domain_id cannot be read fails the
// whole call, as does a duplicate domain ID across documents.
func (l *Loader) RegisterAll(root string, registry *domain.Registry, patterns ...string) ([]string, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	paths, err := l.Discover(root, patterns...)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, path := range paths {
		domainID, err := domain.PeekDomainID(path)
		if err != nil {
			return nil, err
		}

		docPath := path
		err = registry.Register(domainID, func() (*domain.Domain, error) {
			doc, err := domain.LoadDocument(docPath)
			if err != nil {
				return nil, err
			}
			return domain.New(doc)
		})
		if err != nil {
			return nil, fmt.Errorf("register domain from %s: %w", path, err)
		}

		l.logger.Info("Registered domain",
			"domain_id", domainID,
			"path", path)
		ids = append(ids, domainID)
	}
	return ids, nil
}
