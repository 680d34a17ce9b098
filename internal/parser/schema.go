package parser

import (
	"api-tester-mcp/internal/types"

	"github.com/getkin/kin-openapi/openapi3"
)

// maxSchemaDepth bounds recursion through self-referencing schemas
const maxSchemaDepth = 8

func convertSchemaRef(ref *openapi3.SchemaRef, depth int) *types.Schema {
	if ref == nil || ref.Value == nil || depth > maxSchemaDepth {
		return nil
	}
	s := ref.Value
	out := &types.Schema{
		Format:    s.Format,
		Enum:      s.Enum,
		Example:   s.Example,
		Default:   s.Default,
		Minimum:   s.Min,
		Maximum:   s.Max,
		MinLength: s.MinLength,
		MaxLength: s.MaxLength,
		Required:  append([]string(nil), s.Required...),
	}
	if s.Type != nil && len(s.Type.Slice()) > 0 {
		out.Type = s.Type.Slice()[0]
	}

	// allOf members contribute properties and required fields
	for _, member := range s.AllOf {
		if m := convertSchemaRef(member, depth+1); m != nil {
			if out.Type == "" {
				out.Type = m.Type
			}
			for name, prop := range m.Properties {
				if out.Properties == nil {
					out.Properties = make(map[string]*types.Schema)
				}
				out.Properties[name] = prop
			}
			out.Required = append(out.Required, m.Required...)
		}
	}

	if len(s.Properties) > 0 {
		if out.Properties == nil {
			out.Properties = make(map[string]*types.Schema, len(s.Properties))
		}
		for name, prop := range s.Properties {
			if converted := convertSchemaRef(prop, depth+1); converted != nil {
				out.Properties[name] = converted
			}
		}
	}
	if out.Type == "" && len(out.Properties) > 0 {
		out.Type = "object"
	}
	if s.Items != nil {
		out.Items = convertSchemaRef(s.Items, depth+1)
		if out.Type == "" {
			out.Type = "array"
		}
	}
	return out
}

func schemaType(s *types.Schema) string {
	if s == nil {
		return ""
	}
	return s.Type
}

// inferSchema derives a schema from an example value, as Postman bodies carry no schema
func inferSchema(v any) *types.Schema {
	switch t := v.(type) {
	case map[string]any:
		s := &types.Schema{Type: "object", Properties: make(map[string]*types.Schema, len(t))}
		for k, val := range t {
			prop := inferSchema(val)
			prop.Example = val
			s.Properties[k] = prop
		}
		return s
	case []any:
		s := &types.Schema{Type: "array"}
		if len(t) > 0 {
			s.Items = inferSchema(t[0])
		}
		return s
	case bool:
		return &types.Schema{Type: "boolean"}
	case float64:
		if t == float64(int64(t)) {
			return &types.Schema{Type: "integer"}
		}
		return &types.Schema{Type: "number"}
	case int, int64:
		return &types.Schema{Type: "integer"}
	case nil:
		return &types.Schema{}
	default:
		return &types.Schema{Type: "string"}
	}
}
