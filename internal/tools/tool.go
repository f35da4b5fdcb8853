// Package tools holds the trip assistant's tool catalog and dispatcher.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// JSON schema type names used in tool parameters.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Tool is one capability the model can invoke.
type Tool interface {
	Definition() Definition
	Call(ctx context.Context, args Args) (any, error)
}

// Definition describes a tool to the model.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Schema is the JSON schema of a tool's argument object.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property is one argument of a tool.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"` // advertised to the model, not enforced
}

// ObjectSchema builds an object schema from properties and required names.
func ObjectSchema(props map[string]Property, required ...string) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	if required == nil {
		required = []string{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

// Validate checks args against the schema: every required argument present,
// no unexpected arguments, each value of the declared type.
func (s Schema) Validate(args Args) error {
	for _, name := range s.Required {
		if v, ok := args[name]; !ok || v == nil {
			return fmt.Errorf("missing required argument '%s'", name)
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := s.Properties[name]
		if !ok {
			return fmt.Errorf("unexpected argument '%s'", name)
		}
		v := args[name]
		if v == nil {
			continue
		}
		if err := prop.check(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (p Property) check(name string, v any) error {
	switch p.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("argument '%s' must be a string", name)
		}
	case TypeNumber:
		if _, ok := toFloat(v); !ok {
			return fmt.Errorf("argument '%s' must be a number", name)
		}
	case TypeInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("argument '%s' must be an integer", name)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("argument '%s' must be a boolean", name)
		}
	}
	return nil
}

// Args are the decoded arguments of a tool call. Getters assume the
// arguments already passed Schema.Validate.
type Args map[string]any

// String returns the string argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// StringOr returns the string argument, or def when absent or empty.
func (a Args) StringOr(name, def string) string {
	if s := a.String(name); s != "" {
		return s
	}
	return def
}

// Float returns the numeric argument, or 0 when absent.
func (a Args) Float(name string) float64 {
	f, _ := toFloat(a[name])
	return f
}

// IntOr returns the numeric argument truncated to an int, or def when absent.
func (a Args) IntOr(name string, def int) int {
	if f, ok := toFloat(a[name]); ok {
		return int(f)
	}
	return def
}

// BoolOr returns the boolean argument, or def when absent.
func (a Args) BoolOr(name string, def bool) bool {
	if b, ok := a[name].(bool); ok {
		return b
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
