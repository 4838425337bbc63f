// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// ValidationError reports the first place a value departs from its schema.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return e.Path + ": " + e.Reason
}

// Validate checks v, a value decoded by encoding/json, against s: types
// match, required properties are present and enum values are allowed.
// Properties not declared by s are accepted.
func Validate(s *Schema, v any) error {
	return validate(s, v, "")
}

func validate(s *Schema, v any, path string) error {
	if s == nil {
		return nil
	}
	if v == nil {
		if s.Nullable {
			return nil
		}
		if len(s.AnyOf) == 0 && s.Type == "" {
			return nil
		}
		return fail(path, "null not allowed")
	}

	if len(s.AnyOf) > 0 {
		for _, alt := range s.AnyOf {
			if validate(alt, v, path) == nil {
				return nil
			}
		}
		return fail(path, "matches none of the allowed alternatives")
	}

	switch s.Type {
	case TypeObject:
		obj, ok := asObject(v)
		if !ok {
			return fail(path, fmt.Sprintf("expected object, got %s", kind(v)))
		}
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				return fail(join(path, name), "required property missing")
			}
		}
		for _, name := range s.propertyNames() {
			val, present := obj[name]
			if !present {
				continue
			}
			if err := validate(s.Properties[name], val, join(path, name)); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return fail(path, fmt.Sprintf("expected array, got %s", kind(v)))
		}
		for i, e := range arr {
			if err := validate(s.Items, e, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return fail(path, fmt.Sprintf("expected string, got %s", kind(v)))
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return fail(path, fmt.Sprintf("%q is not one of %s", str, strings.Join(quoteAll(s.Enum), ", ")))
		}
	case TypeInteger:
		n, ok := asNumber(v)
		if !ok {
			return fail(path, fmt.Sprintf("expected integer, got %s", kind(v)))
		}
		if n != math.Trunc(n) {
			return fail(path, fmt.Sprintf("expected integer, got %v", n))
		}
	case TypeNumber:
		if _, ok := asNumber(v); !ok {
			return fail(path, fmt.Sprintf("expected number, got %s", kind(v)))
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fail(path, fmt.Sprintf("expected boolean, got %s", kind(v)))
		}
	}
	return nil
}

// ValidateJSON decodes data and validates it against s.
func ValidateJSON(s *Schema, data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ValidationError{Reason: "invalid JSON: " + err.Error()}
	}
	if err := Validate(s, v); err != nil {
		return nil, err
	}
	return v, nil
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case types.Record:
		return t, true
	default:
		return nil, false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func kind(v any) string {
	switch v.(type) {
	case map[string]any, types.Record:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int, int64, json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func fail(path, reason string) error {
	return &ValidationError{Path: path, Reason: reason}
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
