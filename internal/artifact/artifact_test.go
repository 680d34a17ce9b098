package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"api-tester-mcp/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteScenarios(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	path, err := w.WriteScenarios("s1", []types.Scenario{{ID: "a", Name: "GET /pets - positive", Category: types.CategoryPositive}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scenarios", "s1_scenarios.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc ScenarioDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "s1", doc.SessionID)
	assert.Equal(t, 1, doc.Count)
	assert.Equal(t, "GET /pets - positive", doc.Scenarios[0].Name)
}

func TestWriteTestCasesMasksCredentials(t *testing.T) {
	dir := t.TempDir()
	env := map[string]string{"auth_apikey": "key-123", "auth_bearer": "tok-456", "region": "eu"}
	cases := []types.TestCase{{
		ID:     "tc1",
		Method: "POST",
		URL:    "https://api.example.com/eu/items?api_key=key-123&limit=1",
		Headers: map[string]string{
			"Authorization": "Bearer tok-456",
			"X-Trace":       "call tok-456",
		},
		Body:             map[string]any{"password": "hunter2", "name": "Rex"},
		CredentialParams: []string{"api_key"},
	}}

	path, err := NewWriter(dir).WriteTestCases("s1", cases, env)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.NotContains(t, text, "key-123")
	assert.NotContains(t, text, "tok-456")
	assert.NotContains(t, text, "hunter2")
	assert.Contains(t, text, "Rex")
	assert.Contains(t, text, "limit=1")

	// the caller's cases are untouched
	assert.Equal(t, "Bearer tok-456", cases[0].Headers["Authorization"])
}

func TestWriteFailsOnFileRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))
	_, err := NewWriter(root).WriteScenarios("s1", nil)
	assert.Error(t, err)
}

func TestLoadTestCases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"id": "a", "method": "GET", "url": "{baseUrl}/pets", "expected_status": 200,
   "assertions": [{"kind": "status_code", "expected": "200"}],
   "unresolved": true, "missing_variables": ["baseUrl"]},
  {"id": "b", "method": "GET", "url": "https://x.test/pets",
   "headers": {"Authorization": "Bearer ***"}, "expected_status": 200,
   "assertions": [{"kind": "status_code", "expected": "200"}]},
  {"id": "c", "method": "POST", "url": "https://x.test/pets", "body": {"owner": "{owner}"},
   "expected_status": 201, "assertions": [{"kind": "status_code", "expected": "201"}]}
]`), 0644))

	cases, err := NewLoader(map[string]string{"baseUrl": "https://api.test"}).LoadTestCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 3)

	assert.Equal(t, "https://api.test/pets", cases[0].URL)
	assert.False(t, cases[0].Unresolved)
	assert.Empty(t, cases[0].MissingVariables)

	assert.True(t, cases[1].Unresolved)
	assert.Equal(t, []string{"masked credential in header Authorization"}, cases[1].MissingVariables)

	assert.True(t, cases[2].Unresolved)
	assert.Equal(t, []string{"owner"}, cases[2].MissingVariables)
}

func TestLoadWrittenDocument(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir).WriteTestCases("s1", []types.TestCase{{
		ID: "a", Method: "GET", URL: "https://x.test/pets", ExpectedStatus: 200,
		Assertions: []types.Assertion{{Kind: types.AssertStatusCode, Expected: "200"}},
	}}, nil)
	require.NoError(t, err)

	cases, err := NewLoader(nil).LoadTestCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "a", cases[0].ID)
	assert.False(t, cases[0].Unresolved)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewLoader(nil).LoadTestCases(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"test_cases": [{"method": "GET"}]}`), 0644))
	_, err = NewLoader(nil).LoadTestCases(bad)
	assert.ErrorContains(t, err, "no id")

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`not json`), 0644))
	_, err = NewLoader(nil).LoadTestCases(garbage)
	assert.Error(t, err)
}
