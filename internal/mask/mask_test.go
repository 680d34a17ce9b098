package mask

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitive(t *testing.T) {
	for _, name := range []string{"auth_bearer", "AUTH_APIKEY", "client_secret", "dbPassword", "Authorization"} {
		assert.True(t, IsSensitive(name), name)
	}
	for _, name := range []string{"baseUrl", "region", "api_key", "limit"} {
		assert.False(t, IsSensitive(name), name)
	}
}

func TestMap(t *testing.T) {
	got := Map(map[string]string{"baseUrl": "https://x", "auth_bearer": "tok-123", "Secret": "s"})
	assert.Equal(t, map[string]string{"baseUrl": "https://x", "auth_bearer": Token, "Secret": Token}, got)
}

func TestHeadersAndURL(t *testing.T) {
	h := Headers(map[string]string{"Authorization": "Bearer abc", "X-API-Key": "k1", "Accept": "application/json"}, "x-api-key")
	assert.Equal(t, Token, h["Authorization"])
	assert.Equal(t, Token, h["X-API-Key"])
	assert.Equal(t, "application/json", h["Accept"])

	u := URL("https://api.example.com/pets?api_key=k1&limit=1", "api_key")
	assert.NotContains(t, u, "k1")
	assert.Contains(t, u, "limit=1")
	assert.Equal(t, "https://x/y", URL("https://x/y"))
}

func TestBodyAndText(t *testing.T) {
	body := Body(map[string]any{
		"name":     "Rex",
		"password": "hunter2",
		"nested":   []any{map[string]any{"authToken": "t"}},
	}).(map[string]any)
	assert.Equal(t, Token, body["password"])
	assert.Equal(t, "Rex", body["name"])
	assert.Equal(t, Token, body["nested"].([]any)[0].(map[string]any)["authToken"])

	out := Text("token=tok-123 url=https://x", map[string]string{"auth_bearer": "tok-123", "baseUrl": "https://x"})
	assert.False(t, strings.Contains(out, "tok-123"))
	assert.Contains(t, out, "https://x")
}
