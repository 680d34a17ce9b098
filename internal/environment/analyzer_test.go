package environment

import (
	"encoding/json"
	"testing"

	"api-tester-mcp/internal/parser"
	"api-tester-mcp/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templatedOpenAPI = `
openapi: 3.0.0
info: {title: t, version: "1"}
servers:
  - url: https://{env}.example.com/{version}
    variables:
      env: {default: staging}
      version: {default: v2}
security:
  - bearerAuth: []
paths:
  /items:
    get:
      security:
        - keyAuth: []
      responses:
        "200": {description: ok}
components:
  securitySchemes:
    bearerAuth: {type: http, scheme: bearer}
    basicAuth: {type: http, scheme: basic}
    keyAuth: {type: apiKey, in: query, name: api_key}
`

func decode(t *testing.T, doc string) map[string]any {
	t.Helper()
	raw, err := parser.DecodeDocument([]byte(doc))
	require.NoError(t, err)
	return raw
}

func TestAnalyzeOpenAPI(t *testing.T) {
	a := NewAnalyzer(nil)
	got := a.Analyze(decode(t, templatedOpenAPI), types.SpecOpenAPI, "https://{env}.example.com/{version}")

	assert.Equal(t, []string{"baseUrl", "auth_bearer", "auth_apikey"}, got.Required.Names())
	assert.Equal(t, []string{"env", "version", "auth_basic"}, got.Optional.Names())
	assert.Equal(t, "3 required, 3 optional", got.Summary)

	base, ok := got.Required.Get("baseUrl")
	require.True(t, ok)
	require.NotNil(t, base.DetectedValue)
	assert.Equal(t, "https://staging.example.com/v2", *base.DetectedValue)
	assert.Equal(t, "servers", base.Source)

	bearer, _ := got.Required.Get("auth_bearer")
	assert.Equal(t, "Bearer token for Authorization header (bearer)", bearer.Description)
	assert.Equal(t, "security_scheme:bearerAuth", bearer.Source)
	assert.Nil(t, bearer.DetectedValue)

	key, _ := got.Required.Get("auth_apikey")
	assert.Equal(t, `API key sent in query parameter "api_key"`, key.Description)

	env, _ := got.Optional.Get("env")
	require.NotNil(t, env.DetectedValue)
	assert.Equal(t, "staging", *env.DetectedValue)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	raw := decode(t, templatedOpenAPI)
	a := NewAnalyzer(nil)
	first := a.Analyze(raw, types.SpecOpenAPI, "https://{env}.example.com/{version}")
	second := a.Analyze(raw, types.SpecOpenAPI, "https://{env}.example.com/{version}")
	assert.Equal(t, first, second)

	fresh := NewAnalyzer(nil).Analyze(decode(t, templatedOpenAPI), types.SpecOpenAPI, "https://{env}.example.com/{version}")
	assert.Equal(t, first, fresh)
}

func TestAnalyzeWithoutCredentials(t *testing.T) {
	doc := `{"openapi":"3.0.0","info":{"title":"t","version":"1"},"servers":[{"url":"https://api.example.com"}],"paths":{}}`
	got := NewAnalyzer(nil).Analyze(decode(t, doc), types.SpecOpenAPI, "https://api.example.com")
	assert.Empty(t, got.Required)
	assert.Empty(t, got.Optional)
	assert.Equal(t, "0 required, 0 optional", got.Summary)
}

func TestAnalyzeMissingBaseURL(t *testing.T) {
	doc := `{"swagger":"2.0","info":{"title":"t","version":"1"},"paths":{}}`
	got := NewAnalyzer(nil).Analyze(decode(t, doc), types.SpecOpenAPI, "")
	require.Len(t, got.Required, 1)
	assert.Equal(t, "baseUrl", got.Required[0].Name)
	assert.Equal(t, "host", got.Required[0].Source)
	assert.Nil(t, got.Required[0].DetectedValue)
}

func TestAnalyzeHidesSensitiveServerDefaults(t *testing.T) {
	doc := `
openapi: 3.0.0
info: {title: t, version: "1"}
servers:
  - url: https://{authTenant}.example.com/{region}
    variables:
      authTenant: {default: s3cr3t-tenant}
      region: {default: eu}
paths: {}
`
	got := NewAnalyzer(nil).Analyze(decode(t, doc), types.SpecOpenAPI, "https://{authTenant}.example.com/{region}")

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cr3t-tenant")

	tenant, ok := got.Optional.Get("authTenant")
	require.True(t, ok)
	assert.Equal(t, `Server URL variable authTenant, defaults to "***"`, tenant.Description)
	assert.Nil(t, tenant.DetectedValue)

	region, ok := got.Optional.Get("region")
	require.True(t, ok)
	require.NotNil(t, region.DetectedValue)
	assert.Equal(t, "eu", *region.DetectedValue)

	base, ok := got.Required.Get("baseUrl")
	require.True(t, ok)
	assert.Nil(t, base.DetectedValue)
	assert.Equal(t, "Base URL of the API under test", base.Description)
}

func TestAnalyzeSwaggerDefinitions(t *testing.T) {
	doc := `{"swagger":"2.0","info":{"title":"t","version":"1"},"host":"h.example.com",
		"securityDefinitions":{"basic":{"type":"basic"}},"security":[{"basic":[]}],"paths":{}}`
	got := NewAnalyzer(nil).Analyze(decode(t, doc), types.SpecOpenAPI, "https://h.example.com")
	assert.Equal(t, []string{"auth_basic"}, got.Required.Names())
}

func TestAnalyzePostman(t *testing.T) {
	doc := `{
		"info": {"name": "c", "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"},
		"auth": {"type": "bearer"},
		"variable": [
			{"key": "region", "value": "eu"},
			{"key": "client_secret", "value": "s3cr3t"},
			{"key": "tenant", "value": ""}
		],
		"item": [
			{"name": "a", "request": {"method": "GET", "url": "{{baseUrl}}/things/{{tenant}}?r={{region}}",
				"header": [{"key": "X-Partner", "value": "{{partner_key}}"}]}},
			{"name": "b", "request": {"auth": {"type": "apikey"}, "method": "GET", "url": "{{baseUrl}}/b"}}
		]
	}`
	got := NewAnalyzer(nil).Analyze(decode(t, doc), types.SpecPostman, "{baseUrl}")

	assert.Equal(t, "baseUrl", got.Required[0].Name)
	assert.ElementsMatch(t, []string{"baseUrl", "auth_bearer", "auth_apikey", "tenant", "partner_key"}, got.Required.Names())
	assert.ElementsMatch(t, []string{"region", "client_secret"}, got.Optional.Names())

	region, _ := got.Optional.Get("region")
	require.NotNil(t, region.DetectedValue)
	assert.Equal(t, "eu", *region.DetectedValue)

	secret, _ := got.Optional.Get("client_secret")
	assert.Nil(t, secret.DetectedValue, "sensitive literals are never echoed")

	partner, _ := got.Required.Get("partner_key")
	assert.Equal(t, "collection_reference", partner.Source)
}

func TestRegisterCustomRuleTakesLowerPrecedence(t *testing.T) {
	a := NewAnalyzer(nil)
	require.NoError(t, a.Register(Rule{
		ID:          "any-http",
		Kind:        KindSecurityScheme,
		Variable:    "custom_token",
		Description: "custom",
		Priority:    AlwaysRequired,
	}))
	doc := `{"openapi":"3.0.0","info":{},"servers":[{"url":"https://x"}],"paths":{},
		"components":{"securitySchemes":{"a":{"type":"http","scheme":"bearer"},"m":{"type":"mutualTLS"}}}}`
	got := a.Analyze(decode(t, doc), types.SpecOpenAPI, "https://x")

	assert.Equal(t, []string{"custom_token"}, got.Required.Names())
	assert.Equal(t, []string{"auth_bearer"}, got.Optional.Names())

	assert.Error(t, a.Register(Rule{ID: "broken", Description: "{{ .Nope"}))
}
