package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpecType(t *testing.T) {
	tests := []struct {
		in      string
		want    SpecType
		wantErr bool
	}{
		{in: "openapi", want: SpecOpenAPI},
		{in: "Swagger", want: SpecOpenAPI},
		{in: " postman ", want: SpecPostman},
		{in: "har", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpecType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithExamplesDoesNotMutateOriginal(t *testing.T) {
	ep := Endpoint{
		Method: "POST",
		Path:   "/pets",
		Parameters: []Parameter{
			{Name: "limit", In: LocationQuery},
			{Name: "trace", In: LocationHeader, Example: "declared"},
		},
		RequestBody: &RequestBody{
			Required: true,
			Schema: &Schema{
				Type:       "object",
				Properties: map[string]*Schema{"name": {Type: "string"}},
			},
		},
	}

	enriched := ep.WithExamples(map[string]any{
		"query.limit":  7,
		"header.trace": "ignored",
		"body.name":    "Rex",
	})

	assert.Equal(t, 7, enriched.Parameters[0].Example)
	assert.Equal(t, "declared", enriched.Parameters[1].Example)
	assert.Equal(t, "Rex", enriched.RequestBody.Schema.Properties["name"].Example)

	assert.Nil(t, ep.Parameters[0].Example)
	assert.Nil(t, ep.RequestBody.Schema.Properties["name"].Example)
}

func TestVariablesMarshalKeepsOrder(t *testing.T) {
	detected := "https://api.example.com"
	vars := Variables{
		{Name: "baseUrl", Description: "Base URL", DetectedValue: &detected, Priority: PriorityRequired, Source: "server"},
		{Name: "auth_bearer", Description: "Bearer token", Priority: PriorityRequired, Source: "security_scheme:bearer"},
	}

	data, err := json.Marshal(vars)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"baseUrl": {"name":"baseUrl","description":"Base URL","detected_value":"https://api.example.com","priority":"required","source":"server"},
		"auth_bearer": {"name":"auth_bearer","description":"Bearer token","priority":"required","source":"security_scheme:bearer"}
	}`, string(data))
	assert.Less(t, strings.Index(string(data), `"baseUrl"`), strings.Index(string(data), `"auth_bearer"`))
}

func TestIsCredentialParam(t *testing.T) {
	ep := Endpoint{Security: []SecurityScheme{{Name: "key", Kind: SecurityAPIKey, In: LocationQuery, ParamName: "api_key"}}}

	assert.True(t, ep.IsCredentialParam(Parameter{Name: "authorization", In: LocationHeader}))
	assert.True(t, ep.IsCredentialParam(Parameter{Name: "api_key", In: LocationQuery}))
	assert.False(t, ep.IsCredentialParam(Parameter{Name: "api_key", In: LocationHeader}))
	assert.False(t, ep.IsCredentialParam(Parameter{Name: "limit", In: LocationQuery}))
}
