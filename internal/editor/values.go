package editor

import (
	"encoding/json"
	"fmt"
	"math"
)

// Section content is untyped JSON. These helpers never fail: a missing or
// wrongly typed field resolves to the supplied default.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

// str returns the first key of m holding a string.
func str(m map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return def
}

func boolean(m map[string]any, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}

func integer(m map[string]any, key string, def int) int {
	switch n := m[key].(type) {
	case float64:
		if n == math.Trunc(n) && n > 0 {
			return int(n)
		}
	case int:
		if n > 0 {
			return n
		}
	}
	return def
}

// objects maps each object element of the list under key; non-objects are
// dropped.
func objects(m map[string]any, key string, fn func(map[string]any) map[string]any) []any {
	out := []any{}
	for _, item := range asList(m[key]) {
		if obj := asMap(item); obj != nil {
			out = append(out, fn(obj))
		}
	}
	return out
}

// stringList renders each element of a list as a string cell.
func stringList(v any) []any {
	out := []any{}
	for _, item := range asList(v) {
		out = append(out, cell(item))
	}
	return out
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	case bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

const previewLimit = 50

// preview renders non-string content as truncated JSON.
func preview(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	r := []rune(string(b))
	if len(r) <= previewLimit {
		return string(r)
	}
	return string(r[:previewLimit]) + "..."
}

// hasID reports whether v can serve as a block id: anything but nil or "".
func hasID(v any) bool {
	if v == nil {
		return false
	}
	s, isString := v.(string)
	return !isString || s != ""
}
