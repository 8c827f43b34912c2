package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// encodeJSON serializes a value for a JSON/TEXT column. nil encodes as "null".
func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

// decodeJSON decodes a JSON column into a generic value.
func decodeJSON(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	return v, nil
}

func decodeJSONInto(raw []byte, target any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

// normalizeContent round-trips a payload through JSON so every backend hands
// back the same shapes (map[string]any, []any, float64...).
func normalizeContent(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return decodeJSON(b)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
