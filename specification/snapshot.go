package specification

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Snapshot is the on-disk form of a store: every record, current and
// superseded, in creation order.
type Snapshot struct {
	Specifications []Specification `json:"specifications" yaml:"specifications"`
}

// Export returns every record in the store in creation order, including
// superseded versions. The result round-trips through Import.
func (s *Store) Export() []Specification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	specs := make([]Specification, 0, len(s.log))
	for _, spec := range s.log {
		specs = append(specs, *spec)
	}
	return specs
}

// Import seeds an empty store from previously exported records. Records
// are replayed in version order per key, so the input may be in any
// order. Fails when the store already holds records, on duplicate IDs,
// on more than one current version per (projectID, key), or when
// versions within a key do not increase strictly.
func (s *Store) Import(specs []Specification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.log) > 0 {
		return fmt.Errorf("import requires an empty store (%d records present)", len(s.log))
	}

	byKey := make(map[recordKey][]Specification)
	for _, spec := range specs {
		if spec.ID == "" || spec.ProjectID == "" || spec.Key == "" {
			return fmt.Errorf("record %q: id, project_id and key are required", spec.ID)
		}
		if !spec.Status.Valid() {
			return fmt.Errorf("record %q: unknown status %q", spec.ID, spec.Status)
		}
		rk := recordKey{projectID: spec.ProjectID, key: spec.Key}
		byKey[rk] = append(byKey[rk], spec)
	}

	keys := make([]recordKey, 0, len(byKey))
	for rk := range byKey {
		keys = append(keys, rk)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].projectID != keys[j].projectID {
			return keys[i].projectID < keys[j].projectID
		}
		return keys[i].key < keys[j].key
	})

	for _, rk := range keys {
		versions := byKey[rk]
		sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })

		currents := 0
		lastVersion := 0
		for _, spec := range versions {
			if spec.Version <= lastVersion {
				return fmt.Errorf("%s/%s: version %d does not increase past %d",
					rk.projectID, rk.key, spec.Version, lastVersion)
			}
			lastVersion = spec.Version
			if spec.IsCurrent {
				currents++
			}
			if _, exists := s.byID[spec.ID]; exists {
				return fmt.Errorf("duplicate record ID %q", spec.ID)
			}
			rec := spec
			s.append(rk, &rec)
		}
		if currents != 1 {
			return fmt.Errorf("%s/%s: %d current versions, want exactly 1", rk.projectID, rk.key, currents)
		}
		// append marks the last record current per key; honor the
		// imported flags instead.
		for i, spec := range versions {
			if spec.IsCurrent {
				s.current[rk] = s.byID[versions[i].ID]
			}
		}
	}
	return nil
}

// LoadSnapshot reads a snapshot YAML file into a fresh store.
func LoadSnapshot(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	store := NewStore()
	if err := store.Import(snap.Specifications); err != nil {
		return nil, fmt.Errorf("importing snapshot %s: %w", path, err)
	}
	return store, nil
}

// SaveSnapshot writes the store's full contents to a snapshot YAML file.
func (s *Store) SaveSnapshot(path string) error {
	data, err := yaml.Marshal(Snapshot{Specifications: s.Export()})
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
