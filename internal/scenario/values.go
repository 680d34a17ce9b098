package scenario

import (
	"fmt"
	"math"
	"strings"

	"api-tester-mcp/internal/types"
)

// sampleString is the short printable value used when nothing better is declared
const sampleString = "sample"

// defaultOverLength is used for over-length mutations when no maxLength is declared
const defaultOverLength = 256

// parameterValue picks a representative valid value: declared example first,
// then the schema, then a value derived from the declared type alone
func parameterValue(p types.Parameter) any {
	if p.Example != nil {
		return p.Example
	}
	if p.Schema != nil {
		return schemaValue(p.Schema)
	}
	return schemaValue(&types.Schema{Type: p.Type})
}

// schemaValue generates a sample value based on the schema
func schemaValue(s *types.Schema) any {
	if s == nil {
		return sampleString
	}
	switch {
	case s.Example != nil:
		return s.Example
	case s.Default != nil:
		return s.Default
	case len(s.Enum) > 0:
		return s.Enum[0]
	}

	switch s.Type {
	case "integer":
		return integerValue(s)
	case "number":
		if s.Minimum != nil {
			return *s.Minimum
		}
		if s.Maximum != nil && *s.Maximum < 1.5 {
			return *s.Maximum
		}
		return 1.5
	case "boolean":
		return true
	case "array":
		return []any{schemaValue(s.Items)}
	case "object":
		return objectValue(s)
	case "string":
		return stringValue(s)
	}
	if len(s.Properties) > 0 {
		return objectValue(s)
	}
	return stringValue(s)
}

// integerValue returns the smallest valid positive integer within the declared bounds
func integerValue(s *types.Schema) int64 {
	v := int64(1)
	if s.Minimum != nil {
		v = int64(math.Ceil(*s.Minimum))
	}
	if s.Maximum != nil && float64(v) > *s.Maximum {
		v = int64(math.Floor(*s.Maximum))
	}
	return v
}

func stringValue(s *types.Schema) string {
	switch s.Format {
	case "email":
		return "test@example.com"
	case "date":
		return "2024-01-01"
	case "date-time":
		return "2024-01-01T12:00:00Z"
	case "uuid":
		return "123e4567-e89b-12d3-a456-426614174000"
	case "uri", "url":
		return "https://example.com"
	case "ipv4":
		return "192.168.1.1"
	case "ipv6":
		return "2001:db8::1"
	case "byte":
		return "c2FtcGxl"
	}
	v := sampleString
	if s.MinLength > uint64(len(v)) {
		v += strings.Repeat("x", int(s.MinLength)-len(v))
	}
	if s.MaxLength != nil && uint64(len(v)) > *s.MaxLength {
		v = v[:*s.MaxLength]
	}
	return v
}

func objectValue(s *types.Schema) map[string]any {
	out := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		out[name] = schemaValue(prop)
	}
	return out
}

// bodyValue prefers the declared body example over a synthesized one
func bodyValue(rb *types.RequestBody) any {
	if rb == nil {
		return nil
	}
	if rb.Example != nil {
		return rb.Example
	}
	if rb.Schema == nil {
		return nil
	}
	return schemaValue(rb.Schema)
}

// overLengthValue exceeds the declared maximum length by one character
func overLengthValue(s *types.Schema) string {
	n := defaultOverLength
	if s != nil && s.MaxLength != nil {
		n = int(*s.MaxLength) + 1
	}
	return strings.Repeat("x", n)
}

// wrongTypeValue returns a value that does not satisfy the declared type
func wrongTypeValue(typ string) any {
	switch typ {
	case "integer", "number":
		return "not-a-number"
	case "boolean":
		return "not-a-boolean"
	case "array", "object":
		return "not-a-" + typ
	}
	return 12345
}

func isNumeric(typ string) bool {
	return typ == "integer" || typ == "number"
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return fmt.Sprintf("%d", int64(t))
		}
	}
	return fmt.Sprint(v)
}

// cloneValue deep copies decoded JSON-like values
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
