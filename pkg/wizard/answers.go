package wizard

import (
	"fmt"
	"slices"
	"strings"
)

// Answers maps a field key to its value. Values are strings, bools or
// string lists; anything else is stored as its fmt representation.
type Answers map[string]any

func normalize(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string, bool:
		return v, true
	case []string:
		return slices.Clone(v), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, true
	default:
		return fmt.Sprint(v), true
	}
}

// Clone returns a deep copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// String returns the text form of a value: bools become yes/no and lists
// are comma-joined.
func (a Answers) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []string:
		return strings.Join(v, ", ")
	default:
		return ""
	}
}

func (a Answers) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		return v == "yes" || v == "true"
	default:
		return false
	}
}

func (a Answers) List(key string) []string {
	if v, ok := a[key].([]string); ok {
		return slices.Clone(v)
	}
	return nil
}

// Filled reports whether key holds a non-blank string, true, or a non-empty list.
func (a Answers) Filled(key string) bool {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case []string:
		return len(v) > 0
	default:
		return false
	}
}

// Vars returns the text form of every answer, for templates and `==` conditions.
func (a Answers) Vars() map[string]string {
	out := make(map[string]string, len(a))
	for k := range a {
		out[k] = a.String(k)
	}
	return out
}

// Bools returns Filled for every answer, for bare-token conditions.
func (a Answers) Bools() map[string]bool {
	out := make(map[string]bool, len(a))
	for k := range a {
		out[k] = a.Filled(k)
	}
	return out
}

// Toggle returns list with item removed if present, appended otherwise.
// Selection order is preserved.
func Toggle(list []string, item string) []string {
	if i := slices.Index(list, item); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), item)
}
