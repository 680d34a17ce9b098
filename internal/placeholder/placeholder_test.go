package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"{{baseUrl}}/pets/:petId":       "{baseUrl}/pets/{petId}",
		"https://{{ host }}/v1/users":   "https://{host}/v1/users",
		"https://api.example.com:8443/": "https://api.example.com:8443/",
		"/pets/{petId}":                 "/pets/{petId}",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestExpand(t *testing.T) {
	vars := map[string]string{"baseUrl": "https://api.example.com", "id": "7"}
	lookup := func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}

	out, missing := Expand("{baseUrl}/pets/{id}", lookup)
	assert.Equal(t, "https://api.example.com/pets/7", out)
	assert.Empty(t, missing)

	out, missing = Expand("Bearer {auth_bearer}", lookup)
	assert.Equal(t, "Bearer {auth_bearer}", out)
	assert.Equal(t, []string{"auth_bearer"}, missing)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"scheme", "region"}, Names("{scheme}://{region}.api.io/{scheme}"))
	assert.False(t, Has(`{"json": true}`))
	assert.True(t, Has("/pets/{id}"))
}

func TestPostmanNames(t *testing.T) {
	doc := `{"url": "{{baseUrl}}/users/:id?q={{ term }}", "auth": "{{baseUrl}}", "port": "http://h:8080/x"}`
	assert.Equal(t, []string{"baseUrl", "term"}, PostmanNames(doc))
}
