// File: cuculi/config/helper.go
package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// flattenMap converts a nested map[string]any to a flat map[string]any with dot-notation paths.
// Empty maps are kept as leaves so that a declared but empty section is still visible.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newPath := key
		if prefix != "" {
			newPath = prefix + "." + key
		}

		if nestedMap, isMap := value.(map[string]any); isMap && len(nestedMap) > 0 {
			for subPath, subValue := range flattenMap(nestedMap, newPath) {
				flat[subPath] = subValue
			}
		} else {
			flat[newPath] = value
		}
	}

	return flat
}

// navigateToPath traverses nested map to reach the specified path.
// The second result is false when any segment is missing.
func navigateToPath(nested map[string]any, path string) (any, bool) {
	path = strings.TrimSuffix(path, ".")
	if path == "" {
		return nested, true
	}

	current := any(nested)
	for _, segment := range strings.Split(path, ".") {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, exists := currentMap[segment]
		if !exists {
			return nil, false
		}
		current = value
	}

	return current, true
}

// expandDottedKeys rewrites keys such as "db.host" into nested mappings so a
// source may use either notation. Keys are applied in sorted order, which places
// "db" before "db.host" and lets the dotted form merge into the nested one.
func expandDottedKeys(m map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, key := range keys {
		value := m[key]
		if nested, ok := value.(map[string]any); ok {
			expanded, err := expandDottedKeys(nested)
			if err != nil {
				return nil, err
			}
			value = expanded
		}
		if !strings.Contains(key, ".") {
			if err := setNestedValue(out, []string{key}, value); err != nil {
				return nil, err
			}
			continue
		}
		segments := strings.Split(key, ".")
		for _, segment := range segments {
			if segment == "" {
				return nil, fmt.Errorf("invalid key %q: empty path segment", key)
			}
		}
		if err := setNestedValue(out, segments, value); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
	}
	return out, nil
}

// setNestedValue sets a value in a nested map using a path of segments,
// creating intermediate maps as needed. Two mappings at the same path are merged;
// any other collision is an error.
func setNestedValue(nested map[string]any, segments []string, value any) error {
	current := nested
	for i, segment := range segments[:len(segments)-1] {
		next, exists := current[segment]
		if !exists {
			child := make(map[string]any)
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is already set to a non-mapping value", strings.Join(segments[:i+1], "."))
		}
		current = child
	}

	last := segments[len(segments)-1]
	existing, exists := current[last]
	if !exists {
		current[last] = value
		return nil
	}
	existingMap, leftIsMap := existing.(map[string]any)
	valueMap, rightIsMap := value.(map[string]any)
	if !leftIsMap || !rightIsMap {
		return fmt.Errorf("duplicate key %q", strings.Join(segments, "."))
	}
	for k, v := range valueMap {
		if err := setNestedValue(existingMap, []string{k}, v); err != nil {
			return err
		}
	}
	return nil
}

// mergeMaps deep-merges override on top of base and returns a new tree.
// Mappings present on both sides merge recursively; anything else in override
// replaces the base value. Neither input is modified.
func mergeMaps(base, override map[string]any) map[string]any {
	result := deepCopyMap(base)
	for key, value := range override {
		if existing, ok := result[key].(map[string]any); ok {
			if overMap, ok := value.(map[string]any); ok {
				result[key] = mergeMaps(existing, overMap)
				continue
			}
		}
		result[key] = deepCopy(value)
	}
	return result
}

// deepCopy returns a copy of v that shares no maps or slices with it.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

// normalizeValue rewrites decoder-specific container and number types into the
// canonical forms used throughout the package: map[string]any, []any, int64, float64.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		if val > uint64(^uint64(0)>>1) {
			return val
		}
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

// isValidKeySegment checks if a single name segment is made of letters, digits, underscores and dashes.
// Used for config and environment names so that they cannot escape the config directory.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}
