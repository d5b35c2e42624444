package message

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// ToolDescriptor describes a tool: its stable name, a human description and
// the schema of its arguments. Descriptors are treated as immutable once
// registered.
type ToolDescriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// NewToolDescriptor creates a ToolDescriptor. A nil schema is replaced by an
// empty object schema so the descriptor is always valid on the wire.
func NewToolDescriptor(name, description string, inputSchema *jsonschema.Schema) ToolDescriptor {
	if inputSchema == nil {
		inputSchema = ObjectSchema(nil)
	}

	return ToolDescriptor{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// PropertyOption configures a property schema built with Property.
type PropertyOption func(*jsonschema.Schema)

// WithEnum restricts a property to an ordered list of values.
func WithEnum(values ...string) PropertyOption {
	return func(s *jsonschema.Schema) {
		s.Enum = make([]any, len(values))
		for i, v := range values {
			s.Enum[i] = v
		}
	}
}

// WithFormat sets the format keyword, e.g. "date-time" or "uri".
func WithFormat(format string) PropertyOption {
	return func(s *jsonschema.Schema) {
		s.Format = format
	}
}

// WithItems sets the item schema of an array property.
func WithItems(items *jsonschema.Schema) PropertyOption {
	return func(s *jsonschema.Schema) {
		s.Items = items
	}
}

// Property builds a property schema of the given JSON type.
func Property(typ, description string, opts ...PropertyOption) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        typ,
		Description: description,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ObjectSchema builds an object schema with the given properties and
// required names. Additional properties are allowed.
func ObjectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// ClosedObjectSchema is ObjectSchema with additional properties forbidden.
func ClosedObjectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	s := ObjectSchema(props, required...)
	s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}

	return s
}

// AdditionalPropertiesAllowed reports whether s accepts properties it does not declare.
func AdditionalPropertiesAllowed(s *jsonschema.Schema) bool {
	if s == nil || s.AdditionalProperties == nil {
		return true
	}

	ap := s.AdditionalProperties

	return ap.Not == nil || !isEmptySchema(ap.Not)
}

func isEmptySchema(s *jsonschema.Schema) bool {
	return s.Type == "" && len(s.Types) == 0 && len(s.Properties) == 0 &&
		s.Not == nil && len(s.AllOf) == 0 && len(s.AnyOf) == 0 && len(s.OneOf) == 0 &&
		len(s.Enum) == 0 && s.Const == nil && s.Ref == ""
}

// SimpleSchema creates an object schema from a name -> Go type map.
// Every listed property is required.
//
// Input format: {"city": "string", "days": "int"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
		required = append(required, name)
	}

	return ObjectSchema(properties, required...)
}

// goTypeToJSONSchema converts a Go type string to a JSON Schema type.
func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			return &jsonschema.Schema{
				Type:  "array",
				Items: goTypeToJSONSchema(goType[2:]),
			}
		}

		return &jsonschema.Schema{Type: "string"}
	}
}
