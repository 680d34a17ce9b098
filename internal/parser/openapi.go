package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"api-tester-mcp/internal/types"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// methodOrder fixes the order operations of one path are emitted in
var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

// OpenAPIParser handles OpenAPI 3.x documents and Swagger 2.0 documents
type OpenAPIParser struct{}

// Parse loads the document with kin-openapi and extracts its endpoints
func (p *OpenAPIParser) Parse(content []byte, raw map[string]any) (*Document, error) {
	if _, ok := raw["info"].(map[string]any); !ok {
		return nil, newParseError(types.SpecOpenAPI, ReasonMissing, "info", nil)
	}
	if v, ok := raw["openapi"]; ok {
		version := fmt.Sprint(v)
		if !strings.HasPrefix(version, "3.") {
			return nil, newParseError(types.SpecOpenAPI, ReasonUnsupported, "openapi "+version, nil)
		}
		if _, ok := raw["paths"]; !ok {
			return nil, newParseError(types.SpecOpenAPI, ReasonMissing, "paths", nil)
		}
		return p.parseV3(content)
	}
	if v, ok := raw["swagger"]; ok {
		version := fmt.Sprint(v)
		if version != "2.0" {
			return nil, newParseError(types.SpecOpenAPI, ReasonUnsupported, "swagger "+version, nil)
		}
		if _, ok := raw["paths"]; !ok {
			return nil, newParseError(types.SpecOpenAPI, ReasonMissing, "paths", nil)
		}
		return p.parseV2(raw)
	}
	return nil, newParseError(types.SpecOpenAPI, ReasonMissing, "openapi or swagger version field", nil)
}

func (p *OpenAPIParser) parseV3(content []byte) (*Document, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	baseURL := ""
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		baseURL = strings.TrimRight(doc.Servers[0].URL, "/")
	}
	return &Document{BaseURL: baseURL, Endpoints: extractEndpoints(doc)}, nil
}

func (p *OpenAPIParser) parseV2(raw map[string]any) (*Document, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode swagger document: %w", err)
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return nil, fmt.Errorf("failed to decode swagger document: %w", err)
	}
	doc, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert swagger document: %w", err)
	}
	return &Document{BaseURL: swaggerBaseURL(&doc2), Endpoints: extractEndpoints(doc)}, nil
}

// swaggerBaseURL resolves scheme://host/basePath, leaving it relative without a host
func swaggerBaseURL(doc *openapi2.T) string {
	basePath := strings.TrimRight(doc.BasePath, "/")
	if doc.Host == "" {
		return basePath
	}
	scheme := "https"
	if len(doc.Schemes) > 0 {
		scheme = doc.Schemes[0]
	}
	return scheme + "://" + doc.Host + basePath
}

// extractEndpoints walks paths in lexical order and methods in methodOrder
func extractEndpoints(doc *openapi3.T) []types.Endpoint {
	var endpoints []types.Endpoint
	if doc.Paths == nil {
		return endpoints
	}

	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, path := range keys {
		pathItem := paths[path]
		if pathItem == nil {
			continue
		}
		for _, method := range methodOrder {
			operation := pathItem.GetOperation(method)
			if operation == nil {
				continue
			}
			endpoints = append(endpoints, buildEndpoint(doc, path, method, pathItem, operation))
		}
	}
	return endpoints
}

func buildEndpoint(doc *openapi3.T, path, method string, pathItem *openapi3.PathItem, operation *openapi3.Operation) types.Endpoint {
	summary := operation.Summary
	if summary == "" {
		summary = operation.OperationID
	}

	endpoint := types.Endpoint{
		Method:     method,
		Path:       path,
		Summary:    summary,
		Parameters: make([]types.Parameter, 0),
		Responses:  make(map[int]types.Response),
	}

	// Operation parameters override path-level parameters with the same name and location
	merged := make([]*openapi3.Parameter, 0)
	index := make(map[string]int)
	for _, group := range []openapi3.Parameters{pathItem.Parameters, operation.Parameters} {
		for _, ref := range group {
			if ref == nil || ref.Value == nil {
				continue
			}
			key := ref.Value.In + ":" + ref.Value.Name
			if i, ok := index[key]; ok {
				merged[i] = ref.Value
				continue
			}
			index[key] = len(merged)
			merged = append(merged, ref.Value)
		}
	}
	for _, param := range merged {
		schema := convertSchemaRef(param.Schema, 0)
		endpoint.Parameters = append(endpoint.Parameters, types.Parameter{
			Name:     param.Name,
			In:       param.In,
			Type:     schemaType(schema),
			Required: param.Required || param.In == openapi3.ParameterInPath,
			Schema:   schema,
			Example:  parameterExample(param, schema),
		})
	}

	if operation.RequestBody != nil && operation.RequestBody.Value != nil {
		body := operation.RequestBody.Value
		if ct, media := pickContent(body.Content); media != nil {
			rb := &types.RequestBody{
				Required:    body.Required,
				ContentType: ct,
				Schema:      convertSchemaRef(media.Schema, 0),
				Example:     media.Example,
			}
			if rb.Example == nil {
				rb.Example = firstExample(media.Examples)
			}
			endpoint.RequestBody = rb
		}
	}

	if operation.Responses != nil {
		for status, ref := range operation.Responses.Map() {
			code, err := strconv.Atoi(status)
			if err != nil || ref == nil || ref.Value == nil {
				continue
			}
			resp := types.Response{}
			if ref.Value.Description != nil {
				resp.Description = *ref.Value.Description
			}
			if ct, media := pickContent(ref.Value.Content); media != nil {
				resp.ContentType = ct
				resp.Schema = convertSchemaRef(media.Schema, 0)
			}
			endpoint.Responses[code] = resp
		}
	}

	requirements := doc.Security
	if operation.Security != nil {
		requirements = *operation.Security
	}
	endpoint.Security, endpoint.AuthRequired = resolveSecurity(doc, requirements)
	return endpoint
}

// resolveSecurity takes the first security alternative. An empty alternative
// makes authentication optional, so the endpoint is not marked as requiring it.
func resolveSecurity(doc *openapi3.T, requirements openapi3.SecurityRequirements) ([]types.SecurityScheme, bool) {
	if len(requirements) == 0 {
		return nil, false
	}
	for _, req := range requirements {
		if len(req) == 0 {
			return nil, false
		}
	}

	names := make([]string, 0, len(requirements[0]))
	for name := range requirements[0] {
		names = append(names, name)
	}
	sort.Strings(names)

	var schemes []types.SecurityScheme
	for _, name := range names {
		if scheme, ok := lookupScheme(doc, name); ok {
			schemes = append(schemes, scheme)
		}
	}
	return schemes, true
}

func lookupScheme(doc *openapi3.T, name string) (types.SecurityScheme, bool) {
	if doc.Components == nil {
		return types.SecurityScheme{}, false
	}
	ref, ok := doc.Components.SecuritySchemes[name]
	if !ok || ref == nil || ref.Value == nil {
		return types.SecurityScheme{}, false
	}
	kind, ok := SecurityKindOf(ref.Value.Type, ref.Value.Scheme)
	if !ok {
		return types.SecurityScheme{}, false
	}
	scheme := types.SecurityScheme{Name: name, Kind: kind}
	if kind == types.SecurityAPIKey {
		scheme.In = ref.Value.In
		scheme.ParamName = ref.Value.Name
	}
	return scheme, true
}

// SecurityKindOf maps an OpenAPI security scheme type/scheme pair onto a SecurityKind
func SecurityKindOf(schemeType, httpScheme string) (types.SecurityKind, bool) {
	switch strings.ToLower(schemeType) {
	case "http":
		switch strings.ToLower(httpScheme) {
		case "basic":
			return types.SecurityBasic, true
		default:
			return types.SecurityBearer, true
		}
	case "apikey":
		return types.SecurityAPIKey, true
	case "oauth2", "openidconnect":
		return types.SecurityOAuth2, true
	case "basic":
		return types.SecurityBasic, true
	}
	return "", false
}

// pickContent prefers JSON media types, then the lexically first one
func pickContent(content openapi3.Content) (string, *openapi3.MediaType) {
	if len(content) == 0 {
		return "", nil
	}
	if media, ok := content["application/json"]; ok && media != nil {
		return "application/json", media
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, "json") && content[k] != nil {
			return k, content[k]
		}
	}
	return keys[0], content[keys[0]]
}

func parameterExample(param *openapi3.Parameter, schema *types.Schema) any {
	if param.Example != nil {
		return param.Example
	}
	if v := firstExample(param.Examples); v != nil {
		return v
	}
	if schema != nil && schema.Example != nil {
		return schema.Example
	}
	return nil
}

func firstExample(examples openapi3.Examples) any {
	if len(examples) == 0 {
		return nil
	}
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if ex := examples[k]; ex != nil && ex.Value != nil && ex.Value.Value != nil {
			return ex.Value.Value
		}
	}
	return nil
}
