package schema

import (
	"fmt"
	"sort"
)

// Type is a JSON value type a schema node can require.
type Type string

const (
	String Type = "string"
	Number Type = "number"
	Array  Type = "array"
	Object Type = "object"
)

// Schema declares the JSON shape requested from the model. The same value
// is serialised for the gateway and walked by Validate when the response
// comes back, so the two never drift apart.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
	Enum        []string
	MinItems    int
}

// PropertyNames returns the object's property names in sorted order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSONSchema renders s as a JSON Schema document, the dialect the Claude
// tool input and Ollama format fields accept.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]string(nil), s.Enum...)
	}
	switch s.Type {
	case Object:
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.JSONSchema()
		}
		out["properties"] = props
		if len(s.Required) > 0 {
			out["required"] = append([]string(nil), s.Required...)
		}
	case Array:
		if s.Items != nil {
			out["items"] = s.Items.JSONSchema()
		}
		if s.MinItems > 0 {
			out["minItems"] = s.MinItems
		}
	}
	return out
}

// MismatchError locates the first place a document departs from a schema.
type MismatchError struct {
	Path    string
	Problem string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Problem)
}

// Validate checks a document decoded by encoding/json into any against s.
// Required keys and value types are enforced at every level. Enum values and
// numeric ranges are not: the model's values pass through as given.
func (s *Schema) Validate(doc any) error {
	return s.validate(doc, "$")
}

func (s *Schema) validate(v any, path string) error {
	switch s.Type {
	case String:
		if _, ok := v.(string); !ok {
			return &MismatchError{Path: path, Problem: fmt.Sprintf("expected string, got %s", typeName(v))}
		}
	case Number:
		if _, ok := v.(float64); !ok {
			return &MismatchError{Path: path, Problem: fmt.Sprintf("expected number, got %s", typeName(v))}
		}
	case Array:
		arr, ok := v.([]any)
		if !ok {
			return &MismatchError{Path: path, Problem: fmt.Sprintf("expected array, got %s", typeName(v))}
		}
		if len(arr) < s.MinItems {
			return &MismatchError{Path: path, Problem: fmt.Sprintf("expected at least %d item(s), got %d", s.MinItems, len(arr))}
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range arr {
			if err := s.Items.validate(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case Object:
		obj, ok := v.(map[string]any)
		if !ok {
			return &MismatchError{Path: path, Problem: fmt.Sprintf("expected object, got %s", typeName(v))}
		}
		for _, key := range s.Required {
			if _, present := obj[key]; !present {
				return &MismatchError{Path: path + "." + key, Problem: "required field is missing"}
			}
		}
		for _, name := range s.PropertyNames() {
			val, present := obj[name]
			if !present {
				continue
			}
			if err := s.Properties[name].validate(val, path+"."+name); err != nil {
				return err
			}
		}
	}
	return nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
