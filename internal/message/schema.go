// ABOUTME: Field specifications for message payloads and structural validation
// ABOUTME: SchemaError collects every offending field instead of stopping at the first

package message

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema indicates a message payload does not match its declared shape.
var ErrSchema = errors.New("schema error")

// Kind is the JSON kind a payload field must have.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
	KindList   Kind = "list"
)

// FieldSpec declares one payload field.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Required bool
	Elem     Kind // element kind for KindList fields, empty means any
}

// Schema is the ordered set of fields a payload may carry. Fields not named
// in the schema are ignored.
type Schema []FieldSpec

// Str declares a string field.
func Str(name string, required bool) FieldSpec {
	return FieldSpec{Name: name, Kind: KindString, Required: required}
}

// List declares a list field whose elements have the given kind.
func List(name string, elem Kind, required bool) FieldSpec {
	return FieldSpec{Name: name, Kind: KindList, Elem: elem, Required: required}
}

// FieldError describes a single invalid field.
type FieldError struct {
	Field  string
	Reason string
}

// SchemaError lists every field that failed validation.
type SchemaError struct {
	Type   Type
	Fields []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	if e.Type == "" {
		return fmt.Sprintf("schema error: %s", strings.Join(parts, "; "))
	}
	return fmt.Sprintf("schema error in %s: %s", e.Type, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrSchema.
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// Validate checks raw payload fields against the schema. A null value counts
// as absent. Returns nil or a *SchemaError naming every bad field in schema
// order.
func (s Schema) Validate(t Type, raw map[string]any) error {
	var bad []FieldError
	for _, f := range s {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				bad = append(bad, FieldError{Field: f.Name, Reason: "required field missing"})
			}
			continue
		}
		if !hasKind(v, f.Kind) {
			bad = append(bad, FieldError{
				Field:  f.Name,
				Reason: fmt.Sprintf("expected %s, got %s", f.Kind, kindOf(v)),
			})
			continue
		}
		if f.Kind == KindList && f.Elem != "" {
			for i, elem := range v.([]any) {
				if !hasKind(elem, f.Elem) {
					bad = append(bad, FieldError{
						Field:  fmt.Sprintf("%s[%d]", f.Name, i),
						Reason: fmt.Sprintf("expected %s, got %s", f.Elem, kindOf(elem)),
					})
				}
			}
		}
	}
	if len(bad) > 0 {
		return &SchemaError{Type: t, Fields: bad}
	}
	return nil
}

// hasKind reports whether a value decoded by encoding/json has the kind.
func hasKind(v any, k Kind) bool {
	return kindOf(v) == k
}

func kindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case float64:
		return KindNumber
	case bool:
		return KindBool
	case map[string]any:
		return KindObject
	case []any:
		return KindList
	case nil:
		return "null"
	default:
		return Kind(fmt.Sprintf("%T", v))
	}
}
