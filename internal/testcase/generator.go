// Package testcase lowers scenarios into concrete HTTP requests.
package testcase

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"api-tester-mcp/internal/placeholder"
	"api-tester-mcp/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var idNamespace = uuid.MustParse("0b9d7c51-3f2e-5a64-8c1d-7e5f9a2b4c36")

// Generator turns scenarios into test cases, one per scenario, order-preserving
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a test case generator
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger.Named("testcase")}
}

// Generate resolves every scenario against the base URL and env vars. A case
// whose placeholders cannot all be substituted is still emitted, marked
// Unresolved with the missing variable names.
func (g *Generator) Generate(baseURL string, envVars map[string]string, endpoints []types.Endpoint, scenarios []types.Scenario) []types.TestCase {
	cases := make([]types.TestCase, 0, len(scenarios))
	unresolved := 0
	for _, sc := range scenarios {
		tc := g.lower(baseURL, envVars, endpoints, sc)
		if tc.Unresolved {
			unresolved++
		}
		cases = append(cases, tc)
	}
	g.logger.Debug("test cases generated",
		zap.Int("count", len(cases)),
		zap.Int("unresolved", unresolved))
	return cases
}

// request accumulates the parts of one test case while placeholders are resolved
type request struct {
	env     map[string]string
	missing map[string]bool
	headers map[string]string
	query   url.Values
	creds   []string
}

func (r *request) expand(s string) string {
	out, missing := placeholder.Expand(s, func(name string) (string, bool) {
		v, ok := r.env[name]
		return v, ok && v != ""
	})
	for _, m := range missing {
		r.missing[m] = true
	}
	return out
}

func (r *request) expandValue(v any) any {
	switch t := v.(type) {
	case string:
		return r.expand(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = r.expandValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = r.expandValue(val)
		}
		return out
	default:
		return v
	}
}

func (r *request) credential(name string) (string, bool) {
	v, ok := r.env[name]
	if !ok || v == "" {
		r.missing[name] = true
		return "", false
	}
	return v, true
}

func (g *Generator) lower(baseURL string, envVars map[string]string, endpoints []types.Endpoint, sc types.Scenario) types.TestCase {
	req := &request{
		env:     envVars,
		missing: make(map[string]bool),
		headers: make(map[string]string),
		query:   url.Values{},
	}

	ep, ok := safeEndpoint(endpoints, sc.EndpointRef)
	if !ok {
		ep = types.Endpoint{Method: sc.Method, Path: sc.Path}
	}

	base := strings.TrimRight(envVars[types.VarBaseURL], "/")
	if base == "" {
		base = strings.TrimRight(baseURL, "/")
	}
	if base == "" {
		req.missing[types.VarBaseURL] = true
	}

	path := sc.Path
	for name, v := range sc.Inputs.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(req.expand(formatValue(v))))
	}
	fullURL := req.expand(base + path)

	for name, v := range sc.Inputs.QueryParams {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				req.query.Add(name, req.expand(formatValue(item)))
			}
			continue
		}
		req.query.Set(name, req.expand(formatValue(v)))
	}
	for name, v := range sc.Inputs.Headers {
		req.headers[name] = req.expand(v)
	}
	body := req.expandValue(sc.Inputs.Body)

	if sc.IncludeAuth {
		injectAuth(req, ep)
	}
	for _, p := range ep.Parameters {
		if ep.IsCredentialParam(p) {
			req.creds = appendUnique(req.creds, p.Name)
		}
	}

	if encoded := req.query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	expected := expectedStatus(ep, sc.Category)
	missing := make([]string, 0, len(req.missing))
	for name := range req.missing {
		missing = append(missing, name)
	}
	sort.Strings(missing)
	sort.Strings(req.creds)

	tc := types.TestCase{
		ID:               uuid.NewSHA1(idNamespace, []byte(sc.ID)).String(),
		ScenarioRef:      sc.ID,
		Name:             sc.Name,
		Method:           sc.Method,
		URL:              fullURL,
		Headers:          req.headers,
		Body:             body,
		ExpectedStatus:   expected,
		Assertions:       assertionsFor(ep, expected),
		Unresolved:       len(missing) > 0,
		CredentialParams: req.creds,
	}
	if len(missing) > 0 {
		tc.MissingVariables = missing
	}
	return tc
}

// injectAuth attaches credentials for the endpoint's declared schemes unless
// the scenario already carries that header or query parameter
func injectAuth(req *request, ep types.Endpoint) {
	for _, scheme := range ep.Security {
		switch scheme.Kind {
		case types.SecurityBearer, types.SecurityOAuth2:
			if hasHeader(req.headers, "Authorization") {
				continue
			}
			if token, ok := req.credential(types.VarAuthBearer); ok {
				req.headers["Authorization"] = "Bearer " + token
			}
			req.creds = appendUnique(req.creds, "Authorization")
		case types.SecurityBasic:
			if hasHeader(req.headers, "Authorization") {
				continue
			}
			if creds, ok := req.credential(types.VarAuthBasic); ok {
				req.headers["Authorization"] = "Basic " + basicCredentials(creds)
			}
			req.creds = appendUnique(req.creds, "Authorization")
		case types.SecurityAPIKey:
			name := scheme.ParamName
			if name == "" {
				name = "X-API-Key"
			}
			req.creds = appendUnique(req.creds, name)
			switch scheme.In {
			case types.LocationQuery:
				if req.query.Has(name) {
					continue
				}
				if key, ok := req.credential(types.VarAuthAPIKey); ok {
					req.query.Set(name, key)
				}
			case types.LocationCookie:
				if key, ok := req.credential(types.VarAuthAPIKey); ok {
					cookie := name + "=" + key
					if existing, ok := req.headers["Cookie"]; ok && existing != "" {
						cookie = existing + "; " + cookie
					}
					req.headers["Cookie"] = cookie
				}
			default:
				if hasHeader(req.headers, name) {
					continue
				}
				if key, ok := req.credential(types.VarAuthAPIKey); ok {
					req.headers[name] = key
				}
			}
		}
	}
}

// basicCredentials encodes user:pass pairs and passes pre-encoded values through
func basicCredentials(v string) string {
	if strings.Contains(v, ":") {
		return base64.StdEncoding.EncodeToString([]byte(v))
	}
	return v
}

// expectedStatus assigns the status code by scenario category, using the
// codes the specification declares and falling back to HTTP conventions
func expectedStatus(ep types.Endpoint, category types.Category) int {
	switch category {
	case types.CategoryNegative:
		if !ep.DeclaresStatus(401) && ep.DeclaresStatus(403) {
			return 403
		}
		return 401
	case types.CategoryEdge:
		if !ep.DeclaresStatus(400) && ep.DeclaresStatus(422) {
			return 422
		}
		return 400
	}
	codes := make([]int, 0, len(ep.Responses))
	for code := range ep.Responses {
		if code >= 200 && code < 300 {
			codes = append(codes, code)
		}
	}
	if len(codes) > 0 {
		sort.Ints(codes)
		return codes[0]
	}
	if ep.Method == "POST" {
		return 201
	}
	return 200
}

// assertionsFor always checks the status code, then the declared media type and
// required top-level fields of the response expected for that status
func assertionsFor(ep types.Endpoint, status int) []types.Assertion {
	assertions := []types.Assertion{{Kind: types.AssertStatusCode, Expected: strconv.Itoa(status)}}
	resp, ok := ep.Responses[status]
	if !ok {
		return assertions
	}
	if resp.ContentType != "" {
		assertions = append(assertions, types.Assertion{Kind: types.AssertContentType, Expected: resp.ContentType})
	}
	if resp.Schema != nil {
		seen := make(map[string]bool)
		for _, field := range resp.Schema.Required {
			if seen[field] {
				continue
			}
			seen[field] = true
			assertions = append(assertions, types.Assertion{Kind: types.AssertFieldPresent, Path: fieldPath(field)})
		}
	}
	return assertions
}

// fieldPath builds a JSONPath, bracket-quoting names that are not plain identifiers
func fieldPath(name string) string {
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "$['" + strings.ReplaceAll(name, "'", `\'`) + "']"
		}
	}
	return "$." + name
}

func safeEndpoint(endpoints []types.Endpoint, ref int) (types.Endpoint, bool) {
	if ref < 0 || ref >= len(endpoints) {
		return types.Endpoint{}, false
	}
	return endpoints[ref], true
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return list
		}
	}
	return append(list, s)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
