package crawler

import (
	"sort"
	"strconv"
	"strings"
)

// cleanNumber strips thousands separators and whitespace from a raw
// numeric string.
func cleanNumber(raw string) string {
	return strings.NewReplacer(",", "", " ", "").Replace(raw)
}

// ToInt coerces a JSON value (string, float64, int, ...) to an int.
// Unparsable values fall back to def; this never panics, so one bad
// field cannot abort a batch.
func ToInt(value any, def int) int {
	switch v := value.(type) {
	case nil:
		return def
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		cleaned := cleanNumber(v)
		if cleaned == "" {
			return def
		}
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// ToFloat coerces a JSON value to a float pointer; nil when absent or
// unparsable.
func ToFloat(value any) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		cleaned := cleanNumber(v)
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ToIntPtr is ToInt with a nil fallback instead of a default value.
func ToIntPtr(value any) *int {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		return &v
	case float64:
		n := int(v)
		return &n
	case string:
		cleaned := cleanNumber(v)
		if cleaned == "" {
			return nil
		}
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// FirstString looks up candidate keys in priority order and returns
// the first non-empty string form. Source schemas drift between
// summary and detail responses, so every logical field carries an
// ordered candidate list.
func FirstString(item map[string]any, candidates ...string) string {
	for _, key := range candidates {
		raw, ok := item[key]
		if !ok || raw == nil {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = strings.TrimSpace(v)
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			s = strconv.Itoa(v)
		default:
			continue
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// FirstValue returns the first non-nil candidate value.
func FirstValue(item map[string]any, candidates ...string) any {
	for _, key := range candidates {
		if raw, ok := item[key]; ok && raw != nil {
			return raw
		}
	}
	return nil
}

// SortedKeys returns the map's keys in sorted order, for schema-drift
// key-set sampling.
func SortedKeys(item map[string]any) []string {
	keys := make([]string, 0, len(item))
	for key := range item {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// AsObject narrows a JSON value to an object, or nil.
func AsObject(value any) map[string]any {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// AsList narrows a JSON value to a list, or nil.
func AsList(value any) []any {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	return list
}
