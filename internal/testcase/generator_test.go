package testcase

import (
	"encoding/base64"
	"testing"

	"api-tester-mcp/internal/scenario"
	"api-tester-mcp/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func petEndpoints() []types.Endpoint {
	return []types.Endpoint{
		{
			Method: "GET", Path: "/pets/{petId}", AuthRequired: true,
			Security:   []types.SecurityScheme{{Name: "bearerAuth", Kind: types.SecurityBearer}},
			Parameters: []types.Parameter{{Name: "petId", In: "path", Type: "integer", Required: true, Example: 7}},
			Responses: map[int]types.Response{
				200: {ContentType: "application/json", Schema: &types.Schema{Type: "object", Required: []string{"id", "name", "owner-id"}}},
				404: {},
			},
		},
		{
			Method: "POST", Path: "/pets",
			RequestBody: &types.RequestBody{
				ContentType: "application/json",
				Schema: &types.Schema{
					Type:       "object",
					Required:   []string{"name"},
					Properties: map[string]*types.Schema{"name": {Type: "string", Example: "{petName}"}},
				},
			},
			Responses: map[int]types.Response{422: {}},
		},
		{
			Method: "GET", Path: "/reports", AuthRequired: true,
			Security: []types.SecurityScheme{{Name: "key", Kind: types.SecurityAPIKey, In: "query", ParamName: "api_key"}},
			Responses: map[int]types.Response{403: {}},
		},
	}
}

func generate(t *testing.T, baseURL string, env map[string]string, endpoints []types.Endpoint) ([]types.Scenario, []types.TestCase) {
	t.Helper()
	scenarios := scenario.NewGenerator(nil, scenario.DefaultOptions()).Generate(endpoints)
	cases := NewGenerator(nil).Generate(baseURL, env, endpoints, scenarios)
	require.Len(t, cases, len(scenarios))
	for i := range cases {
		require.Equal(t, scenarios[i].ID, cases[i].ScenarioRef, "order is preserved")
		require.NotEmpty(t, cases[i].Assertions)
	}
	return scenarios, cases
}

func TestGenerateResolvedCases(t *testing.T) {
	env := map[string]string{"auth_bearer": "tok-1", "auth_apikey": "k-9", "petName": "Rex"}
	_, cases := generate(t, "https://api.example.com/v1/", env, petEndpoints())
	// GET pets positive, negative, edge; POST positive, edge; reports positive, negative
	require.Len(t, cases, 7)

	getPet := cases[0]
	assert.False(t, getPet.Unresolved)
	assert.Equal(t, "https://api.example.com/v1/pets/7", getPet.URL)
	assert.Equal(t, "Bearer tok-1", getPet.Headers["Authorization"])
	assert.Equal(t, 200, getPet.ExpectedStatus)
	assert.Equal(t, []types.Assertion{
		{Kind: types.AssertStatusCode, Expected: "200"},
		{Kind: types.AssertContentType, Expected: "application/json"},
		{Kind: types.AssertFieldPresent, Path: "$.id"},
		{Kind: types.AssertFieldPresent, Path: "$.name"},
		{Kind: types.AssertFieldPresent, Path: "$['owner-id']"},
	}, getPet.Assertions)
	assert.Equal(t, []string{"Authorization"}, getPet.CredentialParams)

	unauthorized := cases[1]
	assert.NotContains(t, unauthorized.Headers, "Authorization")
	assert.Equal(t, 401, unauthorized.ExpectedStatus)

	edge := cases[2]
	assert.Equal(t, 400, edge.ExpectedStatus)
	assert.Equal(t, "https://api.example.com/v1/pets/not-a-number", edge.URL)
	assert.Equal(t, "Bearer tok-1", edge.Headers["Authorization"])

	create := cases[3]
	assert.Equal(t, 201, create.ExpectedStatus, "verb fallback")
	assert.Equal(t, map[string]any{"name": "Rex"}, create.Body)
	assert.Equal(t, 422, cases[4].ExpectedStatus, "422 used when only it is declared")

	reports := cases[5]
	assert.Equal(t, "https://api.example.com/v1/reports?api_key=k-9", reports.URL)
	assert.Equal(t, []string{"api_key"}, reports.CredentialParams)
	assert.Equal(t, 403, cases[6].ExpectedStatus)
	assert.Equal(t, "https://api.example.com/v1/reports", cases[6].URL)
}

func TestGenerateMarksUnresolved(t *testing.T) {
	_, cases := generate(t, "https://{region}.example.com", map[string]string{}, petEndpoints())

	getPet := cases[0]
	assert.True(t, getPet.Unresolved)
	assert.Equal(t, []string{"auth_bearer", "region"}, getPet.MissingVariables)

	unauthorized := cases[1]
	assert.Equal(t, []string{"region"}, unauthorized.MissingVariables, "no credential needed without auth")

	create := cases[3]
	assert.Equal(t, []string{"petName", "region"}, create.MissingVariables)
}

func TestEnvBaseURLOverridesParsed(t *testing.T) {
	env := map[string]string{"baseUrl": "http://localhost:8080/", "auth_bearer": "t", "auth_apikey": "k", "petName": "x"}
	_, cases := generate(t, "https://{region}.example.com", env, petEndpoints())
	assert.Equal(t, "http://localhost:8080/pets/7", cases[0].URL)
	for _, tc := range cases {
		assert.False(t, tc.Unresolved, tc.Name)
	}
}

func TestMissingBaseURL(t *testing.T) {
	endpoints := []types.Endpoint{{Method: "GET", Path: "/ping"}}
	_, cases := generate(t, "", nil, endpoints)
	assert.True(t, cases[0].Unresolved)
	assert.Equal(t, []string{"baseUrl"}, cases[0].MissingVariables)
}

func TestInjectAuthVariants(t *testing.T) {
	tests := []struct {
		name   string
		scheme types.SecurityScheme
		env    map[string]string
		header string
		value  string
	}{
		{
			name:   "basic user pass",
			scheme: types.SecurityScheme{Kind: types.SecurityBasic},
			env:    map[string]string{"auth_basic": "alice:secret"},
			header: "Authorization",
			value:  "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:secret")),
		},
		{
			name:   "basic pre-encoded",
			scheme: types.SecurityScheme{Kind: types.SecurityBasic},
			env:    map[string]string{"auth_basic": "YWxpY2U6c2VjcmV0"},
			header: "Authorization",
			value:  "Basic YWxpY2U6c2VjcmV0",
		},
		{
			name:   "api key header",
			scheme: types.SecurityScheme{Kind: types.SecurityAPIKey, In: "header", ParamName: "X-API-Key"},
			env:    map[string]string{"auth_apikey": "k1"},
			header: "X-API-Key",
			value:  "k1",
		},
		{
			name:   "api key cookie",
			scheme: types.SecurityScheme{Kind: types.SecurityAPIKey, In: "cookie", ParamName: "session"},
			env:    map[string]string{"auth_apikey": "c1"},
			header: "Cookie",
			value:  "session=c1",
		},
		{
			name:   "oauth2",
			scheme: types.SecurityScheme{Kind: types.SecurityOAuth2},
			env:    map[string]string{"auth_bearer": "at"},
			header: "Authorization",
			value:  "Bearer at",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints := []types.Endpoint{{Method: "GET", Path: "/x", AuthRequired: true, Security: []types.SecurityScheme{tt.scheme}}}
			_, cases := generate(t, "https://h", tt.env, endpoints)
			assert.Equal(t, tt.value, cases[0].Headers[tt.header])
			assert.False(t, cases[0].Unresolved)
		})
	}
}

func TestDeclaredCredentialHeaderIsNotOverridden(t *testing.T) {
	endpoints := []types.Endpoint{{
		Method: "GET", Path: "/me", AuthRequired: true,
		Security:   []types.SecurityScheme{{Name: "authorization-header", Kind: types.SecurityBearer}},
		Parameters: []types.Parameter{{Name: "Authorization", In: "header", Example: "Bearer {token}"}},
	}}
	_, cases := generate(t, "https://h", map[string]string{"token": "abc"}, endpoints)
	assert.Equal(t, "Bearer abc", cases[0].Headers["Authorization"])
	assert.False(t, cases[0].Unresolved)
	assert.NotContains(t, cases[1].Headers, "Authorization")
}

func TestFiveEndpointPropertyYieldsTenCases(t *testing.T) {
	bearer := []types.SecurityScheme{{Name: "b", Kind: types.SecurityBearer}}
	endpoints := []types.Endpoint{
		{Method: "GET", Path: "/a"},
		{Method: "GET", Path: "/b", AuthRequired: true, Security: bearer,
			Parameters: []types.Parameter{{Name: "id", In: "query", Type: "string", Required: true}}},
		{Method: "GET", Path: "/c/{id}", Parameters: []types.Parameter{{Name: "id", In: "path", Type: "integer", Required: true}}},
		{Method: "PUT", Path: "/d", AuthRequired: true, Security: bearer,
			Parameters: []types.Parameter{{Name: "X-Req", In: "header", Type: "string", Required: true}}},
		{Method: "DELETE", Path: "/e"},
	}
	scenarios, cases := generate(t, "https://h", map[string]string{"auth_bearer": "t"}, endpoints)
	assert.Len(t, scenarios, 10)
	assert.Len(t, cases, 10)
	for i, tc := range cases {
		if scenarios[i].Category == types.CategoryPositive {
			assert.True(t, tc.ExpectedStatus >= 200 && tc.ExpectedStatus < 300)
		}
	}
}
