package types

// Schema is the format-agnostic subset of a JSON schema needed to synthesize values
type Schema struct {
	Type       string             `json:"type,omitempty"`
	Format     string             `json:"format,omitempty"`
	Enum       []any              `json:"enum,omitempty"`
	Example    any                `json:"example,omitempty"`
	Default    any                `json:"default,omitempty"`
	Minimum    *float64           `json:"minimum,omitempty"`
	Maximum    *float64           `json:"maximum,omitempty"`
	MinLength  uint64             `json:"min_length,omitempty"`
	MaxLength  *uint64            `json:"max_length,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

// IsRequired reports whether the named property is required
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the schema
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	if s.Enum != nil {
		out.Enum = append([]any(nil), s.Enum...)
	}
	if s.Required != nil {
		out.Required = append([]string(nil), s.Required...)
	}
	if s.Properties != nil {
		out.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v.Clone()
		}
	}
	out.Items = s.Items.Clone()
	return &out
}
