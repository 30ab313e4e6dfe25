package types

import "fmt"

// SchemaType represents JSON Schema types.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// JSONSchema is a declared-but-not-statically-enforced description of
// an agent's input or output shape. The engine only uses it for
// discovery and the optional boundary check in Validate; it is not a
// full JSON Schema implementation.
type JSONSchema struct {
	Title       string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Type        SchemaType             `json:"type,omitempty" yaml:"type,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string               `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty" yaml:"items,omitempty"`
	Enum        []any                  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any                    `json:"default,omitempty" yaml:"default,omitempty"`
}

// NewObjectSchema creates a new object schema.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       SchemaTypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// AddProperty adds a property to an object schema.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema, required bool) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	if required {
		s.Required = append(s.Required, name)
	}
	return s
}

// Validate performs a lightweight runtime check of vals against the
// schema: required keys must be present and typed values must match
// their declared primitive type. Nested objects are not descended into.
func (s *JSONSchema) Validate(vals Values) error {
	if s == nil || s.Type != SchemaTypeObject {
		return nil
	}
	for _, key := range s.Required {
		if _, ok := vals[key]; !ok {
			return Errorf(ErrValidation, "missing required key %q", key)
		}
	}
	for key, prop := range s.Properties {
		val, ok := vals[key]
		if !ok || val == nil || prop == nil {
			continue
		}
		if err := checkPrimitive(key, prop.Type, val); err != nil {
			return err
		}
	}
	return nil
}

func checkPrimitive(key string, t SchemaType, val any) error {
	switch t {
	case SchemaTypeString:
		if _, ok := val.(string); !ok {
			return typeMismatch(key, t, val)
		}
	case SchemaTypeBoolean:
		if _, ok := val.(bool); !ok {
			return typeMismatch(key, t, val)
		}
	case SchemaTypeNumber, SchemaTypeInteger:
		switch val.(type) {
		case float64, float32, int, int64:
		default:
			return typeMismatch(key, t, val)
		}
	}
	return nil
}

func typeMismatch(key string, t SchemaType, val any) error {
	return Errorf(ErrValidation, "key %q: expected %s, got %s", key, t, fmt.Sprintf("%T", val))
}
