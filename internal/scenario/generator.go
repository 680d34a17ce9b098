// Package scenario derives abstract test intents from parsed endpoints.
package scenario

import (
	"fmt"
	"sort"
	"strings"

	"api-tester-mcp/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// idNamespace scopes the name-based scenario identifiers
var idNamespace = uuid.MustParse("6f1c2b1e-4a8d-5c3e-9b7a-2d0e8f4c1a95")

// Options selects which categories beyond positive are generated
type Options struct {
	IncludeNegative bool `json:"include_negative_tests"`
	IncludeEdge     bool `json:"include_edge_cases"`
}

// DefaultOptions enables every category
func DefaultOptions() Options {
	return Options{IncludeNegative: true, IncludeEdge: true}
}

// Generator produces scenarios in endpoint order, then category rank
type Generator struct {
	opts   Options
	logger *zap.Logger
}

// NewGenerator creates a scenario generator
func NewGenerator(logger *zap.Logger, opts Options) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{opts: opts, logger: logger.Named("scenario")}
}

// Generate is a pure function of the endpoint sequence: the same endpoints in
// the same order always give the same scenarios with the same ids.
func (g *Generator) Generate(endpoints []types.Endpoint) []types.Scenario {
	scenarios := make([]types.Scenario, 0, len(endpoints)*2)
	for i, ep := range endpoints {
		positive := g.positive(i, ep)
		scenarios = append(scenarios, positive)

		if g.opts.IncludeNegative && ep.AuthRequired {
			scenarios = append(scenarios, g.unauthorized(i, ep, positive))
		}
		if g.opts.IncludeEdge {
			scenarios = append(scenarios, g.edges(i, ep, positive)...)
		}
	}
	g.logger.Debug("scenarios generated",
		zap.Int("endpoints", len(endpoints)),
		zap.Int("scenarios", len(scenarios)))
	return scenarios
}

func (g *Generator) positive(ref int, ep types.Endpoint) types.Scenario {
	return types.Scenario{
		ID:          scenarioID(ref, ep, types.CategoryPositive, ""),
		Name:        fmt.Sprintf("%s - positive", ep.Key()),
		EndpointRef: ref,
		Method:      ep.Method,
		Path:        ep.Path,
		Category:    types.CategoryPositive,
		Inputs:      validInputs(ep),
		Expected:    types.OutcomeSuccess,
		IncludeAuth: ep.AuthRequired,
	}
}

// unauthorized is the positive scenario with every credential-bearing input removed
func (g *Generator) unauthorized(ref int, ep types.Endpoint, positive types.Scenario) types.Scenario {
	inputs := cloneInputs(positive.Inputs)
	for _, p := range ep.Parameters {
		if ep.IsCredentialParam(p) {
			removeInput(&inputs, p)
		}
	}
	return types.Scenario{
		ID:          scenarioID(ref, ep, types.CategoryNegative, ""),
		Name:        fmt.Sprintf("%s - negative: unauthorized request without credentials", ep.Key()),
		EndpointRef: ref,
		Method:      ep.Method,
		Path:        ep.Path,
		Category:    types.CategoryNegative,
		Inputs:      inputs,
		Expected:    types.OutcomeAuthFailure,
		IncludeAuth: false,
	}
}

// edges emits one scenario per required field, each corrupting only that field
func (g *Generator) edges(ref int, ep types.Endpoint, positive types.Scenario) []types.Scenario {
	var out []types.Scenario
	add := func(field string, mutation types.Mutation, mutate func(*types.Inputs)) {
		inputs := cloneInputs(positive.Inputs)
		mutate(&inputs)
		out = append(out, types.Scenario{
			ID:          scenarioID(ref, ep, types.CategoryEdge, field+"|"+string(mutation)),
			Name:        fmt.Sprintf("%s - edge: %s %s", ep.Key(), mutation, field),
			EndpointRef: ref,
			Method:      ep.Method,
			Path:        ep.Path,
			Category:    types.CategoryEdge,
			Inputs:      inputs,
			Expected:    types.OutcomeValidationFailure,
			IncludeAuth: ep.AuthRequired,
			Field:       field,
			Mutation:    mutation,
		})
	}

	for _, p := range ep.Parameters {
		if !p.Required || ep.IsCredentialParam(p) {
			continue
		}
		p := p
		field := types.FieldRef(p.In, p.Name)
		switch {
		case p.In == types.LocationPath && isNumeric(p.Type):
			add(field, types.MutationWrongType, func(in *types.Inputs) { in.PathParams[p.Name] = wrongTypeValue(p.Type) })
		case p.In == types.LocationPath:
			add(field, types.MutationOverLength, func(in *types.Inputs) { in.PathParams[p.Name] = overLengthValue(p.Schema) })
		case p.Schema != nil && p.Schema.MaxLength != nil:
			add(field, types.MutationOverLength, func(in *types.Inputs) { setInput(in, p, overLengthValue(p.Schema)) })
		default:
			add(field, types.MutationMissing, func(in *types.Inputs) { removeInput(in, p) })
		}
	}

	for _, name := range requiredBodyFields(ep.RequestBody) {
		name := name
		prop := ep.RequestBody.Schema.Properties[name]
		field := types.FieldRef(types.LocationBody, name)
		mutation := types.MutationMissing
		if prop != nil && prop.MaxLength != nil {
			mutation = types.MutationOverLength
		}
		add(field, mutation, func(in *types.Inputs) {
			body, ok := in.Body.(map[string]any)
			if !ok {
				body = make(map[string]any)
				in.Body = body
			}
			if mutation == types.MutationOverLength {
				body[name] = overLengthValue(prop)
				return
			}
			delete(body, name)
		})
	}
	return out
}

// requiredBodyFields lists required top-level body properties in declaration order
func requiredBodyFields(rb *types.RequestBody) []string {
	if rb == nil || rb.Schema == nil {
		return nil
	}
	seen := make(map[string]bool)
	var fields []string
	for _, name := range rb.Schema.Required {
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return fields
}

// validInputs assigns a representative value to every non-credential input.
// Credential parameters are kept only when they carry a declared template.
func validInputs(ep types.Endpoint) types.Inputs {
	inputs := types.Inputs{
		PathParams:  make(map[string]any),
		QueryParams: make(map[string]any),
		Headers:     make(map[string]string),
	}
	for _, p := range ep.Parameters {
		if ep.IsCredentialParam(p) && p.Example == nil {
			continue
		}
		setInput(&inputs, p, parameterValue(p))
	}
	if body := bodyValue(ep.RequestBody); body != nil {
		inputs.Body = body
		if ep.RequestBody.ContentType != "" {
			if _, ok := headerKey(inputs.Headers, "Content-Type"); !ok {
				inputs.Headers["Content-Type"] = ep.RequestBody.ContentType
			}
		}
	}
	return inputs
}

func setInput(in *types.Inputs, p types.Parameter, v any) {
	switch p.In {
	case types.LocationPath:
		in.PathParams[p.Name] = v
	case types.LocationQuery:
		in.QueryParams[p.Name] = v
	case types.LocationHeader:
		in.Headers[p.Name] = formatValue(v)
	case types.LocationCookie:
		cookies := parseCookies(in.Headers["Cookie"])
		cookies[p.Name] = formatValue(v)
		writeCookies(in.Headers, cookies)
	}
}

func removeInput(in *types.Inputs, p types.Parameter) {
	switch p.In {
	case types.LocationPath:
		delete(in.PathParams, p.Name)
	case types.LocationQuery:
		delete(in.QueryParams, p.Name)
	case types.LocationHeader:
		if k, ok := headerKey(in.Headers, p.Name); ok {
			delete(in.Headers, k)
		}
	case types.LocationCookie:
		cookies := parseCookies(in.Headers["Cookie"])
		delete(cookies, p.Name)
		writeCookies(in.Headers, cookies)
	}
}

// parseCookies splits a Cookie header into name/value pairs
func parseCookies(header string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" {
			cookies[name] = value
		}
	}
	return cookies
}

// writeCookies sets the Cookie header with pairs sorted by name, or drops it
// when no cookie is left
func writeCookies(headers map[string]string, cookies map[string]string) {
	if len(cookies) == 0 {
		delete(headers, "Cookie")
		return
	}
	pairs := make([]string, 0, len(cookies))
	for name, value := range cookies {
		pairs = append(pairs, name+"="+value)
	}
	sort.Strings(pairs)
	headers["Cookie"] = strings.Join(pairs, "; ")
}

func headerKey(headers map[string]string, name string) (string, bool) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

func cloneInputs(in types.Inputs) types.Inputs {
	out := types.Inputs{
		PathParams:  make(map[string]any, len(in.PathParams)),
		QueryParams: make(map[string]any, len(in.QueryParams)),
		Headers:     make(map[string]string, len(in.Headers)),
		Body:        cloneValue(in.Body),
	}
	for k, v := range in.PathParams {
		out.PathParams[k] = v
	}
	for k, v := range in.QueryParams {
		out.QueryParams[k] = v
	}
	for k, v := range in.Headers {
		out.Headers[k] = v
	}
	return out
}

func scenarioID(ref int, ep types.Endpoint, category types.Category, discriminator string) string {
	name := fmt.Sprintf("%d|%s|%s|%s", ref, ep.Key(), category, discriminator)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
