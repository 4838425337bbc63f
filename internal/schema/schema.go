// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema holds the canonical output schemas requested from the
// text-understanding service. Extraction and labeling look record types up
// in one Registry so that what is requested and what is later consumed
// cannot drift apart.
package schema

import (
	"slices"

	"google.golang.org/genai"
)

// Type is a JSON schema primitive type.
type Type string

// Schema types.
const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Schema describes one JSON value. Properties keep declaration order in
// Order so that prompts and provider schemas are stable.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Order       []string
	Required    []string
	Items       *Schema
	Nullable    bool
	Enum        []string
	// AnyOf lists alternatives; Type is ignored when set.
	AnyOf []*Schema
}

// Prop declares an object property.
type Prop struct {
	Name   string
	Schema *Schema
	// Optional leaves the property out of Required.
	Optional bool
}

// Object builds an object schema from props in order.
func Object(description string, props ...Prop) *Schema {
	s := &Schema{
		Type:        TypeObject,
		Description: description,
		Properties:  make(map[string]*Schema, len(props)),
	}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.Order = append(s.Order, p.Name)
		if !p.Optional {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// Array builds an array schema of items.
func Array(description string, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Description: description, Items: items}
}

// String builds a string schema.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Integer builds an integer schema.
func Integer(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}

// Number builds a number schema.
func Number(description string) *Schema {
	return &Schema{Type: TypeNumber, Description: description}
}

// Boolean builds a boolean schema.
func Boolean(description string) *Schema {
	return &Schema{Type: TypeBoolean, Description: description}
}

// Enum builds a string schema restricted to values.
func Enum(description string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: description, Enum: values}
}

// AnyOf builds a schema accepting any of the alternatives.
func AnyOf(description string, alts ...*Schema) *Schema {
	return &Schema{Description: description, AnyOf: alts}
}

// Null returns a copy of s that also accepts null.
func Null(s *Schema) *Schema {
	c := s.Clone()
	c.Nullable = true
	return c
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	if s.Properties != nil {
		c.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = v.Clone()
		}
	}
	c.Order = slices.Clone(s.Order)
	c.Required = slices.Clone(s.Required)
	c.Enum = slices.Clone(s.Enum)
	c.Items = s.Items.Clone()
	if s.AnyOf != nil {
		c.AnyOf = make([]*Schema, len(s.AnyOf))
		for i, a := range s.AnyOf {
			c.AnyOf[i] = a.Clone()
		}
	}
	return &c
}

// With returns a copy of the object schema s with extra properties
// appended.
func (s *Schema) With(props ...Prop) *Schema {
	c := s.Clone()
	if c.Properties == nil {
		c.Properties = make(map[string]*Schema, len(props))
	}
	for _, p := range props {
		if _, exists := c.Properties[p.Name]; !exists {
			c.Order = append(c.Order, p.Name)
		}
		c.Properties[p.Name] = p.Schema
		if !p.Optional && !slices.Contains(c.Required, p.Name) {
			c.Required = append(c.Required, p.Name)
		}
	}
	return c
}

// propertyNames returns the property names in declaration order followed by
// any undeclared ones sorted.
func (s *Schema) propertyNames() []string {
	names := slices.Clone(s.Order)
	var extra []string
	for k := range s.Properties {
		if !slices.Contains(names, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(names, extra...)
}

// JSON renders s as a JSON schema object, the form accepted by OpenAI
// response formats and Anthropic tool input schemas.
func (s *Schema) JSON() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.AnyOf) > 0 {
		alts := make([]any, len(s.AnyOf))
		for i, a := range s.AnyOf {
			alts[i] = a.JSON()
		}
		if s.Nullable {
			alts = append(alts, map[string]any{"type": "null"})
		}
		out["anyOf"] = alts
		return out
	}

	if s.Nullable {
		out["type"] = []any{string(s.Type), "null"}
	} else {
		out["type"] = string(s.Type)
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			enum[i] = e
		}
		out["enum"] = enum
	}
	switch s.Type {
	case TypeObject:
		props := make(map[string]any, len(s.Properties))
		for _, name := range s.propertyNames() {
			props[name] = s.Properties[name].JSON()
		}
		out["properties"] = props
		out["required"] = append([]string{}, s.Required...)
	case TypeArray:
		out["items"] = s.Items.JSON()
	}
	return out
}

// Genai renders s as a Gemini response schema.
func (s *Schema) Genai() *genai.Schema {
	if s == nil {
		return nil
	}
	g := &genai.Schema{Description: s.Description}
	if s.Nullable {
		g.Nullable = genai.Ptr(true)
	}
	if len(s.AnyOf) > 0 {
		// Gemini rejects object schemas without properties.
		var alts []*Schema
		for _, a := range s.AnyOf {
			if a.Type == TypeObject && len(a.Properties) == 0 {
				continue
			}
			alts = append(alts, a)
		}
		if len(alts) == 1 {
			one := alts[0].Genai()
			if s.Description != "" {
				one.Description = s.Description
			}
			if s.Nullable {
				one.Nullable = genai.Ptr(true)
			}
			return one
		}
		for _, a := range alts {
			g.AnyOf = append(g.AnyOf, a.Genai())
		}
		return g
	}

	g.Type = genaiType(s.Type)
	g.Enum = slices.Clone(s.Enum)
	switch s.Type {
	case TypeObject:
		g.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, name := range s.propertyNames() {
			g.Properties[name] = s.Properties[name].Genai()
			g.PropertyOrdering = append(g.PropertyOrdering, name)
		}
		g.Required = slices.Clone(s.Required)
	case TypeArray:
		g.Items = s.Items.Genai()
	}
	return g
}

func genaiType(t Type) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeString:
		return genai.TypeString
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}
