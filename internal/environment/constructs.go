package environment

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/placeholder"
	"api-tester-mcp/internal/types"
)

// ConstructKind names a specification element that can imply a configuration value
type ConstructKind string

const (
	KindBaseURL            ConstructKind = "base_url"
	KindServerVariable     ConstructKind = "server_variable"
	KindSecurityScheme     ConstructKind = "security_scheme"
	KindCollectionAuth     ConstructKind = "collection_auth"
	KindCollectionVariable ConstructKind = "collection_variable"
)

// Construct is one configuration-relevant element found in a specification
type Construct struct {
	Kind   ConstructKind
	Name   string
	Type   string
	Scheme string
	In     string
	Param  string
	// Value is a literal default or example; HasValue tells an empty literal from none
	Value      string
	HasValue   bool
	Referenced bool
	Source     string
}

// collectConstructs lists constructs in a stable order: base URL (only when
// missing or templated), server variables, referenced security schemes,
// declared-only security schemes, collection auth, collection variables.
func collectConstructs(raw map[string]any, specType types.SpecType, baseURL string) []Construct {
	switch specType {
	case types.SpecOpenAPI:
		return openAPIConstructs(raw, baseURL)
	case types.SpecPostman:
		return postmanConstructs(raw, baseURL)
	}
	return nil
}

func openAPIConstructs(raw map[string]any, baseURL string) []Construct {
	var out []Construct

	source := "servers"
	if _, ok := raw["swagger"]; ok {
		source = "host"
	}

	defaults := make(map[string]string)
	var serverVars []Construct
	if servers, ok := raw["servers"].([]any); ok && len(servers) > 0 {
		if server, ok := servers[0].(map[string]any); ok {
			vars, _ := server["variables"].(map[string]any)
			for _, name := range sortedKeys(vars) {
				def, _ := vars[name].(map[string]any)
				c := Construct{Kind: KindServerVariable, Name: name, Source: "server_variable"}
				if v, ok := def["default"]; ok && v != nil {
					c.Value, c.HasValue = fmt.Sprint(v), true
					// credential defaults never flow into the detected base URL
					if !mask.IsSensitive(name) {
						defaults[name] = c.Value
					}
				}
				serverVars = append(serverVars, c)
			}
		}
	}

	if needsBaseURL(baseURL) {
		base := Construct{Kind: KindBaseURL, Name: types.VarBaseURL, Source: source}
		if baseURL != "" {
			expanded, missing := placeholder.Expand(baseURL, func(name string) (string, bool) {
				v, ok := defaults[name]
				return v, ok
			})
			if len(missing) == 0 {
				base.Value, base.HasValue = expanded, true
			}
		}
		out = append(out, base)
	}
	out = append(out, serverVars...)

	referenced := referencedSchemes(raw)
	var schemes map[string]any
	if components, ok := raw["components"].(map[string]any); ok {
		schemes, _ = components["securitySchemes"].(map[string]any)
	}
	if defs, ok := raw["securityDefinitions"].(map[string]any); ok {
		schemes = defs
	}

	names := sortedKeys(schemes)
	sort.SliceStable(names, func(i, j int) bool {
		return referenced[names[i]] && !referenced[names[j]]
	})
	for _, name := range names {
		def, _ := schemes[name].(map[string]any)
		out = append(out, Construct{
			Kind:       KindSecurityScheme,
			Name:       name,
			Type:       strings.ToLower(stringField(def, "type")),
			Scheme:     strings.ToLower(stringField(def, "scheme")),
			In:         stringField(def, "in"),
			Param:      stringField(def, "name"),
			Referenced: referenced[name],
			Source:     "security_scheme",
		})
	}
	return out
}

// needsBaseURL reports whether the resolved base URL is absent or templated
func needsBaseURL(baseURL string) bool {
	return baseURL == "" || placeholder.Has(baseURL)
}

// referencedSchemes collects scheme names used by the document or any operation
func referencedSchemes(raw map[string]any) map[string]bool {
	refs := make(map[string]bool)
	addRequirements(refs, raw["security"])
	paths, _ := raw["paths"].(map[string]any)
	for _, item := range paths {
		ops, _ := item.(map[string]any)
		for _, op := range ops {
			if m, ok := op.(map[string]any); ok {
				addRequirements(refs, m["security"])
			}
		}
	}
	return refs
}

func addRequirements(refs map[string]bool, v any) {
	reqs, _ := v.([]any)
	for _, r := range reqs {
		m, _ := r.(map[string]any)
		for name := range m {
			refs[name] = true
		}
	}
}

func postmanConstructs(raw map[string]any, baseURL string) []Construct {
	var out []Construct

	defined := make(map[string]Construct)
	var order []string
	vars, _ := raw["variable"].([]any)
	for _, v := range vars {
		m, _ := v.(map[string]any)
		key := stringField(m, "key")
		if key == "" {
			continue
		}
		c := Construct{Kind: KindCollectionVariable, Name: key, Source: "collection_variable"}
		if val, ok := m["value"]; ok && val != nil {
			c.Value, c.HasValue = fmt.Sprint(val), true
		}
		if _, seen := defined[key]; !seen {
			order = append(order, key)
		}
		defined[key] = c
	}

	if needsBaseURL(baseURL) {
		source := "collection_variable"
		if baseURL == "" {
			source = "request_url"
		}
		out = append(out, Construct{Kind: KindBaseURL, Name: types.VarBaseURL, Source: source})
	}

	seenAuth := make(map[string]bool)
	walkPostmanAuth(raw, func(authType string) {
		if !seenAuth[authType] {
			seenAuth[authType] = true
			out = append(out, Construct{Kind: KindCollectionAuth, Name: authType, Type: authType, Referenced: true, Source: "collection_auth"})
		}
	})

	referenced := make(map[string]bool)
	var refOrder []string
	if data, err := json.Marshal(raw); err == nil {
		refOrder = placeholder.PostmanNames(string(data))
		for _, name := range refOrder {
			referenced[name] = true
		}
	}
	for _, key := range order {
		c := defined[key]
		c.Referenced = referenced[key]
		out = append(out, c)
	}
	for _, name := range refOrder {
		if _, ok := defined[name]; ok {
			continue
		}
		out = append(out, Construct{Kind: KindCollectionVariable, Name: name, Referenced: true, Source: "collection_reference"})
	}
	return out
}

// walkPostmanAuth visits auth blocks of the collection, its folders and requests in document order
func walkPostmanAuth(node map[string]any, visit func(authType string)) {
	if auth, ok := node["auth"].(map[string]any); ok {
		if t := strings.ToLower(stringField(auth, "type")); t != "" {
			visit(t)
		}
	}
	if req, ok := node["request"].(map[string]any); ok {
		walkPostmanAuth(req, visit)
	}
	items, _ := node["item"].([]any)
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			walkPostmanAuth(m, visit)
		}
	}
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
