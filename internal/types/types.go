package types

import (
	"fmt"
	"strings"
)

// SpecType identifies the format of an ingested API description
type SpecType string

const (
	SpecOpenAPI SpecType = "openapi"
	SpecPostman SpecType = "postman"
)

// ParseSpecType maps a user supplied format name to a SpecType
func ParseSpecType(s string) (SpecType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openapi", "swagger", "oas":
		return SpecOpenAPI, nil
	case "postman":
		return SpecPostman, nil
	default:
		return "", fmt.Errorf("unsupported spec type %q (expected openapi or postman)", s)
	}
}

// Parameter locations
const (
	LocationPath   = "path"
	LocationQuery  = "query"
	LocationHeader = "header"
	LocationCookie = "cookie"
	LocationBody   = "body"
)

// FieldRef builds the "<location>.<name>" reference used to address a single input field
func FieldRef(in, name string) string {
	return in + "." + name
}

// Endpoint represents an API operation as declared by the specification
type Endpoint struct {
	Method       string           `json:"method"`
	Path         string           `json:"path"`
	Summary      string           `json:"summary,omitempty"`
	AuthRequired bool             `json:"auth_required"`
	Security     []SecurityScheme `json:"security,omitempty"`
	Parameters   []Parameter      `json:"parameters,omitempty"`
	RequestBody  *RequestBody     `json:"request_body,omitempty"`
	Responses    map[int]Response `json:"responses,omitempty"`
}

// Parameter represents an API parameter
type Parameter struct {
	Name     string  `json:"name"`
	In       string  `json:"in"`
	Type     string  `json:"type,omitempty"`
	Required bool    `json:"required"`
	Schema   *Schema `json:"schema,omitempty"`
	Example  any     `json:"example,omitempty"`
}

// RequestBody represents the declared request payload of an operation
type RequestBody struct {
	Required    bool    `json:"required"`
	ContentType string  `json:"content_type"`
	Schema      *Schema `json:"schema,omitempty"`
	Example     any     `json:"example,omitempty"`
}

// Response represents an API response
type Response struct {
	Description string  `json:"description,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// SecurityKind is the normalized kind of an authentication scheme
type SecurityKind string

const (
	SecurityBearer SecurityKind = "bearer"
	SecurityBasic  SecurityKind = "basic"
	SecurityAPIKey SecurityKind = "apikey"
	SecurityOAuth2 SecurityKind = "oauth2"
)

// SecurityScheme describes how credentials are attached to a request.
// In and ParamName are only meaningful for api-key schemes.
type SecurityScheme struct {
	Name      string       `json:"name"`
	Kind      SecurityKind `json:"kind"`
	In        string       `json:"in,omitempty"`
	ParamName string       `json:"param_name,omitempty"`
}

// Key returns the "METHOD path" identifier of the endpoint
func (e Endpoint) Key() string {
	return e.Method + " " + e.Path
}

// DeclaresStatus reports whether the specification lists the status code for this endpoint
func (e Endpoint) DeclaresStatus(code int) bool {
	_, ok := e.Responses[code]
	return ok
}

// IsCredentialParam reports whether a parameter carries credentials, either
// because a declared api-key scheme points at it or because it is the
// Authorization header.
func (e Endpoint) IsCredentialParam(p Parameter) bool {
	if p.In == LocationHeader && strings.EqualFold(p.Name, "Authorization") {
		return true
	}
	for _, s := range e.Security {
		if s.Kind == SecurityAPIKey && strings.EqualFold(s.ParamName, p.Name) && s.In == p.In {
			return true
		}
	}
	return false
}

// WithExamples returns a copy of the endpoint whose parameters and body
// properties carry the supplied examples, keyed by FieldRef. Declared
// examples are never overwritten.
func (e Endpoint) WithExamples(examples map[string]any) Endpoint {
	if len(examples) == 0 {
		return e
	}
	out := e
	out.Parameters = make([]Parameter, len(e.Parameters))
	copy(out.Parameters, e.Parameters)
	for i, p := range out.Parameters {
		if p.Example != nil {
			continue
		}
		if v, ok := examples[FieldRef(p.In, p.Name)]; ok && v != nil {
			out.Parameters[i].Example = v
		}
	}

	if e.RequestBody != nil && e.RequestBody.Schema != nil {
		body := *e.RequestBody
		body.Schema = e.RequestBody.Schema.Clone()
		for name, prop := range body.Schema.Properties {
			if prop == nil || prop.Example != nil {
				continue
			}
			if v, ok := examples[FieldRef(LocationBody, name)]; ok && v != nil {
				prop.Example = v
			}
		}
		out.RequestBody = &body
	}
	return out
}
