// File: cuculi/config/snapshot.go
package config

import (
	"reflect"
	"sort"
	"time"
)

// Snapshot is one fully merged configuration together with the metadata of
// the sources it was built from. A published Snapshot is never modified;
// accessors hand out copies of any map or slice they return.
type Snapshot struct {
	environment string
	revision    uint64
	builtAt     time.Time
	tagName     string

	sources  []SourceState
	warnings []error

	data       map[string]any    // merged tree
	flat       map[string]any    // leaf path -> value
	provenance map[string]string // leaf path -> source name
}

// newSnapshot assembles a snapshot from parsed layers ordered lowest rank first.
// The layers are merged, substituted and flattened here; the result shares no
// memory with the inputs.
func newSnapshot(env string, states []SourceState, layers []map[string]any, lookup EnvLookupFunc, tagName string) *Snapshot {
	merged := make(map[string]any)
	for _, layer := range layers {
		if layer != nil {
			merged = mergeMaps(merged, layer)
		}
	}

	if lookup != nil {
		merged = substituteEnv(merged, lookup).(map[string]any)
	}

	flat := flattenMap(merged, "")

	// The origin of a leaf is the highest layer that declares it.
	provenance := make(map[string]string, len(flat))
	for path := range flat {
		for i := len(layers) - 1; i >= 0; i-- {
			if layers[i] == nil {
				continue
			}
			if _, ok := navigateToPath(layers[i], path); ok {
				provenance[path] = states[i].Name
				break
			}
		}
	}

	return &Snapshot{
		environment: env,
		builtAt:     time.Now(),
		tagName:     tagName,
		sources:     states,
		data:        merged,
		flat:        flat,
		provenance:  provenance,
	}
}

// Environment returns the environment the snapshot was loaded for.
func (s *Snapshot) Environment() string { return s.environment }

// Revision is a per-loader counter, incremented on every installed snapshot.
func (s *Snapshot) Revision() uint64 { return s.revision }

// BuiltAt returns when the snapshot was computed.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Sources returns the source states the snapshot was built from, lowest precedence first.
func (s *Snapshot) Sources() []SourceState {
	out := make([]SourceState, len(s.sources))
	copy(out, s.sources)
	return out
}

// Warnings returns non-fatal problems found while building the snapshot,
// such as *UnmatchedEnvironmentWarning.
func (s *Snapshot) Warnings() []error {
	out := make([]error, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Get returns the value at a dot-separated path. Mappings and sequences are
// deep copies. A path absent from every layer yields *MissingKeyError.
func (s *Snapshot) Get(path string) (any, error) {
	if path == "" {
		return nil, &MissingKeyError{Path: path}
	}
	value, ok := navigateToPath(s.data, path)
	if !ok {
		return nil, &MissingKeyError{Path: path}
	}
	return deepCopy(value), nil
}

// Has reports whether path is present.
func (s *Snapshot) Has(path string) bool {
	if path == "" {
		return false
	}
	_, ok := navigateToPath(s.data, path)
	return ok
}

// Keys returns all leaf paths in sorted order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.flat))
	for k := range s.flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a deep copy of the merged tree.
func (s *Snapshot) Map() map[string]any {
	return deepCopyMap(s.data)
}

// Flat returns a copy of the leaf path to value mapping.
func (s *Snapshot) Flat() map[string]any {
	out := make(map[string]any, len(s.flat))
	for k, v := range s.flat {
		out[k] = deepCopy(v)
	}
	return out
}

// Origin returns the name of the source that supplied a leaf path.
func (s *Snapshot) Origin(path string) (string, bool) {
	name, ok := s.provenance[path]
	return name, ok
}

// Diff returns the sorted leaf paths that differ between s and other,
// including paths present on only one side. A nil other differs everywhere.
func (s *Snapshot) Diff(other *Snapshot) []string {
	var otherFlat map[string]any
	if other != nil {
		otherFlat = other.flat
	}

	changed := make([]string, 0)
	for path, v := range s.flat {
		if ov, ok := otherFlat[path]; !ok || !reflect.DeepEqual(v, ov) {
			changed = append(changed, path)
		}
	}
	for path := range otherFlat {
		if _, ok := s.flat[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// sourceByName finds a recorded source state.
func (s *Snapshot) sourceByName(name string) (SourceState, bool) {
	for _, st := range s.sources {
		if st.Name == name {
			return st, true
		}
	}
	return SourceState{}, false
}
