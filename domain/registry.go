package domain

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360studio/specintel/metrics"
)

// Constructor builds a Domain on demand. Registered constructors run at
// most once per entry: the first Get for an ID invokes the constructor,
// validates the result, and caches it.
type Constructor func() (*Domain, error)

// Registry is a process-wide directory of domains with lazy
// construct-validate-cache semantics. A cached Domain is shared by
// reference with every caller, so construction happens exactly once per
// entry and the result is immutable.
type Registry struct {
	mu           sync.Mutex
	constructors map[string]Constructor
	domains      map[string]*Domain
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		constructors: make(map[string]Constructor),
		domains:      make(map[string]*Domain),
		logger:       logger,
	}
}

// SetMetrics enables construction metrics. Call before first use; a nil
// Metrics leaves instrumentation disabled.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Register stores a constructor for a not-yet-registered domain ID.
// Re-registering an existing ID returns *DuplicateDomainError.
func (r *Registry) Register(domainID string, ctor Constructor) error {
	if domainID == "" {
		return fmt.Errorf("domain ID is required")
	}
	if ctor == nil {
		return fmt.Errorf("constructor for domain %q is required", domainID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[domainID]; exists {
		return &DuplicateDomainError{DomainID: domainID}
	}
	r.constructors[domainID] = ctor
	r.logger.Debug("Registered domain constructor", "domain_id", domainID)
	return nil
}

// Replace swaps the constructor for an ID and drops any cached instance,
// so the next Get constructs from the new configuration. Unlike Register
// it accepts existing IDs; this is the supported path for configuration
// changes.
func (r *Registry) Replace(domainID string, ctor Constructor) error {
	if domainID == "" {
		return fmt.Errorf("domain ID is required")
	}
	if ctor == nil {
		return fmt.Errorf("constructor for domain %q is required", domainID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.constructors[domainID] = ctor
	delete(r.domains, domainID)
	r.logger.Info("Replaced domain constructor", "domain_id", domainID)
	return nil
}

// Get returns the domain for an ID, constructing and caching it on first
// call. Construction runs the constructor and then Validate across all
// four record sets; any issue fails the call with *DomainConfigError
// carrying the full list, and nothing is cached, so a retry after fixing
// the configuration can succeed. Concurrent Gets for the same ID
// serialize: exactly one caller constructs, the rest receive the cached
// instance.
func (r *Registry) Get(domainID string) (*Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dom, ok := r.domains[domainID]; ok {
		return dom, nil
	}

	ctor, ok := r.constructors[domainID]
	if !ok {
		return nil, &NotRegisteredError{DomainID: domainID}
	}

	dom, err := ctor()
	if err != nil {
		r.metrics.DomainBuild(domainID, "error")
		return nil, fmt.Errorf("construct domain %q: %w", domainID, err)
	}
	if dom == nil {
		r.metrics.DomainBuild(domainID, "error")
		return nil, fmt.Errorf("construct domain %q: constructor returned nil", domainID)
	}
	if dom.ID() != domainID {
		r.metrics.DomainBuild(domainID, "error")
		return nil, fmt.Errorf("construct domain %q: constructor produced domain %q", domainID, dom.ID())
	}

	if issues := dom.Validate(); len(issues) > 0 {
		r.logger.Warn("Domain failed validation",
			"domain_id", domainID,
			"issues", len(issues))
		r.metrics.DomainBuild(domainID, "invalid")
		return nil, &DomainConfigError{DomainID: domainID, Issues: issues}
	}

	r.metrics.DomainBuild(domainID, "ok")
	r.domains[domainID] = dom
	r.logger.Info("Constructed domain",
		"domain_id", domainID,
		"version", dom.Version(),
		"categories", len(dom.categories),
		"rules", len(dom.rules))
	return dom, nil
}

// Has reports whether a constructor is registered for the ID. It never
// triggers construction.
func (r *Registry) Has(domainID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.constructors[domainID]
	return ok
}

// ListIDs returns all registered domain IDs in sorted order. It never
// triggers construction.
func (r *Registry) ListIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
