package schema

import (
	"fmt"
	"net/mail"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "email").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// optional marks a field that may be absent or empty.
type optional interface {
	optional() bool
}

// StringType validates string values. NonEmpty rejects blank strings.
type StringType struct {
	NonEmpty bool
}

func (t *StringType) Name() string {
	if t.NonEmpty {
		return "text"
	}
	return "string"
}

func (t *StringType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if t.NonEmpty && strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// JSON numbers arrive as float64
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// EmailType validates a single e-mail address.
type EmailType struct{}

func (t *EmailType) Name() string { return "email" }

func (t *EmailType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != strings.TrimSpace(s) {
		return fmt.Errorf("invalid e-mail address")
	}
	return nil
}

// EnumType accepts one of a fixed set of strings.
type EnumType struct {
	Values []string
}

func (t *EnumType) Name() string { return "enum(" + strings.Join(t.Values, "|") + ")" }

func (t *EnumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if !slices.Contains(t.Values, s) {
		return fmt.Errorf("must be one of %s", strings.Join(t.Values, ", "))
	}
	return nil
}

// DateType validates a date string in the given layout.
type DateType struct {
	Layout string
}

func (t *DateType) Name() string { return "date" }

func (t *DateType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if _, err := time.Parse(t.Layout, s); err != nil {
		return fmt.Errorf("expected date as %s", t.Layout)
	}
	return nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
	min      int
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	if rv.Len() < t.min {
		return fmt.Errorf("needs at least %d item(s)", t.min)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}

// ObjectType validates a nested map against a schema.
type ObjectType struct {
	schema Schema
}

func (t *ObjectType) Name() string { return "object" }

func (t *ObjectType) Validate(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}
	return Validate(t.schema, m)
}

// OptionalType lets a field be absent, nil or an empty string.
type OptionalType struct {
	inner Type
}

func (t *OptionalType) Name() string { return t.inner.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if isEmpty(value) {
		return nil
	}
	return t.inner.Validate(value)
}

func (t *OptionalType) optional() bool { return true }

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// String creates a string type validator.
func String() Type { return &StringType{} }

// Text creates a string validator that rejects blank values.
func Text() Type { return &StringType{NonEmpty: true} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Email creates an e-mail address validator.
func Email() Type { return &EmailType{} }

// Enum accepts one of values.
func Enum(values ...string) Type { return &EnumType{Values: values} }

// Date validates dates in layout (time.DateOnly when empty).
func Date(layout string) Type {
	if layout == "" {
		layout = time.DateOnly
	}
	return &DateType{Layout: layout}
}

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// NonEmptySlice is Slice with at least one element.
func NonEmptySlice(elemType Type) Type {
	return &SliceType{elemType: elemType, min: 1}
}

// Object validates nested maps against s.
func Object(s Schema) Type { return &ObjectType{schema: s} }

// Optional wraps t so that missing or blank values pass.
func Optional(t Type) Type { return &OptionalType{inner: t} }

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ParseType converts a type name to a Type.
// Supports "string", "text", "int", "bool", "email", "date", lists as "[string]"
// and optional fields with a trailing "?".
func ParseType(typeStr string) (Type, error) {
	if strings.HasSuffix(typeStr, "?") {
		inner, err := ParseType(strings.TrimSuffix(typeStr, "?"))
		if err != nil {
			return nil, err
		}
		return Optional(inner), nil
	}

	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "text":
		return Text(), nil
	case "int":
		return Int(), nil
	case "bool":
		return Bool(), nil
	case "email":
		return Email(), nil
	case "date":
		return Date(""), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
