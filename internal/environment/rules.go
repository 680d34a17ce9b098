package environment

import (
	"fmt"
	"strings"
	"text/template"

	"api-tester-mcp/internal/types"

	"github.com/Masterminds/sprig/v3"
)

// PriorityPolicy decides the priority of a variable produced by a rule
type PriorityPolicy int

const (
	AlwaysRequired PriorityPolicy = iota
	AlwaysOptional
	// RequiredIfReferenced is required only when the document actually uses the construct
	RequiredIfReferenced
	// RequiredIfNoValue is required when the construct is used and carries no literal value
	RequiredIfNoValue
)

// Rule maps a specification construct onto one environment variable. Rules are
// evaluated in registration order and the first matching rule wins.
type Rule struct {
	ID   string
	Kind ConstructKind
	// Match narrows Kind further; nil matches every construct of Kind
	Match func(c Construct) bool
	// Variable is the emitted name; empty means the construct's own name
	Variable string
	// Description is a text/template rendered against the Construct
	Description string
	Priority    PriorityPolicy
	// Detect copies the construct's literal value into detected_value
	Detect bool

	tmpl *template.Template
}

func (r *Rule) compile() error {
	tmpl, err := template.New(r.ID).Funcs(sprig.TxtFuncMap()).Parse(r.Description)
	if err != nil {
		return fmt.Errorf("invalid description template for rule %s: %w", r.ID, err)
	}
	r.tmpl = tmpl
	return nil
}

func (r *Rule) matches(c Construct) bool {
	if c.Kind != r.Kind {
		return false
	}
	return r.Match == nil || r.Match(c)
}

func (r *Rule) variableName(c Construct) string {
	if r.Variable != "" {
		return r.Variable
	}
	return c.Name
}

func (r *Rule) describe(c Construct) (string, error) {
	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, c); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Rule) priority(c Construct) types.Priority {
	switch r.Priority {
	case AlwaysOptional:
		return types.PriorityOptional
	case RequiredIfReferenced:
		if c.Referenced {
			return types.PriorityRequired
		}
		return types.PriorityOptional
	case RequiredIfNoValue:
		if c.Referenced && (!c.HasValue || c.Value == "") {
			return types.PriorityRequired
		}
		return types.PriorityOptional
	}
	return types.PriorityRequired
}

func typeIs(values ...string) func(Construct) bool {
	return func(c Construct) bool {
		for _, v := range values {
			if c.Type == v {
				return true
			}
		}
		return false
	}
}

// DefaultRules returns the built-in rule table in precedence order
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "base-url",
			Kind:        KindBaseURL,
			Variable:    types.VarBaseURL,
			Description: "Base URL of the API under test{{ if .HasValue }} (declared: {{ .Value }}){{ end }}",
			Priority:    AlwaysRequired,
			Detect:      true,
		},
		{
			ID:          "http-basic",
			Kind:        KindSecurityScheme,
			Match:       func(c Construct) bool { return c.Type == "basic" || (c.Type == "http" && c.Scheme == "basic") },
			Variable:    types.VarAuthBasic,
			Description: "Base64-encoded credentials for Basic authentication (user:pass is encoded automatically)",
			Priority:    RequiredIfReferenced,
		},
		{
			ID:          "http-bearer",
			Kind:        KindSecurityScheme,
			Match:       typeIs("http"),
			Variable:    types.VarAuthBearer,
			Description: "Bearer token for Authorization header{{ if .Scheme }} ({{ .Scheme }}){{ end }}",
			Priority:    RequiredIfReferenced,
		},
		{
			ID:          "api-key",
			Kind:        KindSecurityScheme,
			Match:       typeIs("apikey"),
			Variable:    types.VarAuthAPIKey,
			Description: "API key sent in {{ .In | default \"header\" }} parameter {{ .Param | quote }}",
			Priority:    RequiredIfReferenced,
		},
		{
			ID:          "oauth2",
			Kind:        KindSecurityScheme,
			Match:       typeIs("oauth2", "openidconnect"),
			Variable:    types.VarAuthBearer,
			Description: "OAuth2 access token sent as a bearer token (scheme {{ .Name }})",
			Priority:    RequiredIfReferenced,
		},
		{
			ID:          "postman-bearer",
			Kind:        KindCollectionAuth,
			Match:       typeIs("bearer", "jwt", "oauth2"),
			Variable:    types.VarAuthBearer,
			Description: "Bearer token for Authorization header (collection {{ .Type }} auth)",
			Priority:    AlwaysRequired,
		},
		{
			ID:          "postman-basic",
			Kind:        KindCollectionAuth,
			Match:       typeIs("basic"),
			Variable:    types.VarAuthBasic,
			Description: "Base64-encoded credentials for Basic authentication (user:pass is encoded automatically)",
			Priority:    AlwaysRequired,
		},
		{
			ID:          "postman-apikey",
			Kind:        KindCollectionAuth,
			Match:       typeIs("apikey"),
			Variable:    types.VarAuthAPIKey,
			Description: "API key configured by the collection apikey auth",
			Priority:    AlwaysRequired,
		},
		{
			ID:          "server-variable",
			Kind:        KindServerVariable,
			Description: "Server URL variable {{ .Name }}{{ if .HasValue }}, defaults to {{ .Value | quote }}{{ end }}",
			Priority:    AlwaysOptional,
			Detect:      true,
		},
		{
			ID:          "collection-variable",
			Kind:        KindCollectionVariable,
			Description: "{{ if .HasValue }}Collection variable {{ .Name }}{{ else }}Variable {{ .Name }} is referenced by the collection but not defined{{ end }}",
			Priority:    RequiredIfNoValue,
			Detect:      true,
		},
	}
}
