package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Priority tells whether a test run can proceed without a variable
type Priority string

const (
	PriorityRequired Priority = "required"
	PriorityOptional Priority = "optional"
)

// Well-known environment variable names consumed by test case generation
const (
	VarBaseURL    = "baseUrl"
	VarAuthBearer = "auth_bearer"
	VarAuthAPIKey = "auth_apikey"
	VarAuthBasic  = "auth_basic"
)

// EnvVarRequirement describes a configuration value the API under test needs
type EnvVarRequirement struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	DetectedValue *string  `json:"detected_value,omitempty"`
	Priority      Priority `json:"priority"`
	Source        string   `json:"source"`
}

// Variables is an ordered list of requirements that renders as a JSON object keyed by name
type Variables []EnvVarRequirement

// Get returns the requirement with the given name
func (v Variables) Get(name string) (EnvVarRequirement, bool) {
	for _, r := range v {
		if r.Name == name {
			return r, true
		}
	}
	return EnvVarRequirement{}, false
}

// Names returns the variable names in order
func (v Variables) Names() []string {
	names := make([]string, len(v))
	for i, r := range v {
		names[i] = r.Name
	}
	return names
}

// MarshalJSON keeps declaration order instead of sorting keys
func (v Variables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal variable %s: %w", r.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EnvAnalysis is the outcome of inspecting a specification for configuration needs
type EnvAnalysis struct {
	Required Variables `json:"required_variables"`
	Optional Variables `json:"optional_variables"`
	Summary  string    `json:"analysis_summary"`
}

// All returns required variables followed by optional ones
func (a EnvAnalysis) All() Variables {
	out := make(Variables, 0, len(a.Required)+len(a.Optional))
	out = append(out, a.Required...)
	return append(out, a.Optional...)
}
