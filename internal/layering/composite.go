// Package layering merges and copies the JSON-like values option groups are
// persisted as. Values are expected to be built from nil, bool, float64,
// string, []any and map[string]any; other types are copied by value.
package layering

// Overlay composes two composites, keeping every key from strong and filling
// missing keys from weak. Nested composites are merged recursively; the
// result never aliases either input.
func Overlay(strong, weak map[string]any) map[string]any {
	out := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		out[key] = Clone(value)
	}
	for key, value := range strong {
		strongMap, strongOK := value.(map[string]any)
		weakMap, weakOK := out[key].(map[string]any)
		if strongOK && weakOK {
			out[key] = Overlay(strongMap, weakMap)
			continue
		}
		out[key] = Clone(value)
	}
	return out
}

// Clone returns a deep copy of value.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return CloneMap(typed)
	case []any:
		if typed == nil {
			return []any(nil)
		}
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = Clone(typed[i])
		}
		return out
	default:
		return value
	}
}

// CloneMap deep copies a composite. A nil input yields nil.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = Clone(value)
	}
	return out
}

// Composite reports whether value is a group composite and returns it.
func Composite(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	return m, ok
}
