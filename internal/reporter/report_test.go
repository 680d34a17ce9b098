package reporter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"api-tester-mcp/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretToken = "tok-SECRET-123"

func sampleSession() *types.TestSession {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	status200 := 200
	return &types.TestSession{
		ID:        "sess-1",
		SpecType:  types.SpecOpenAPI,
		BaseURL:   "https://api.example.com",
		CreatedAt: created,
		EnvVars: map[string]string{
			"baseUrl":     "https://api.example.com",
			"auth_bearer": secretToken,
			"auth_apikey": "key-SECRET-9",
		},
		Scenarios: []types.Scenario{
			{ID: "s1", Name: "GET /pets - positive", Category: types.CategoryPositive},
			{ID: "s2", Name: "GET /pets - negative: unauthorized", Category: types.CategoryNegative},
			{ID: "s3", Name: "POST /pets - edge: missing body.name", Category: types.CategoryEdge},
			{ID: "s4", Name: "GET /reports - positive", Category: types.CategoryPositive},
		},
		TestCases: []types.TestCase{
			{ID: "t1", ScenarioRef: "s1", Name: "GET /pets - positive", Method: "GET", URL: "https://api.example.com/pets",
				Headers: map[string]string{"Authorization": "Bearer " + secretToken}, ExpectedStatus: 200, CredentialParams: []string{"Authorization"}},
			{ID: "t2", ScenarioRef: "s2", Name: "GET /pets - negative: unauthorized", Method: "GET", URL: "https://api.example.com/pets", ExpectedStatus: 401},
			{ID: "t3", ScenarioRef: "s3", Name: "POST /pets - edge: missing body.name", Method: "POST", URL: "https://api.example.com/pets",
				Body: map[string]any{"password": "hunter2", "note": "uses " + secretToken}, ExpectedStatus: 400},
			{ID: "t4", ScenarioRef: "s4", Name: "GET /reports - positive", Method: "GET", URL: "https://api.example.com/reports?api_key=key-SECRET-9",
				ExpectedStatus: 200, CredentialParams: []string{"api_key"}, Unresolved: true},
		},
		Results: []types.TestResult{
			{TestCaseID: "t1", Status: types.StatusPassed, ResponseStatus: &status200, ResponseBody: `{"token":"` + secretToken + `"}`, ExecutionTime: 0.12, AssertionsPassed: 1},
			{TestCaseID: "t2", Status: types.StatusFailed, ResponseStatus: &status200, AssertionsFailed: 1,
				AssertionDetails: []types.AssertionDetail{{Assertion: "status_code == 401", Passed: false, Message: "expected status 401, got 200"}}},
			{TestCaseID: "t3", Status: types.StatusError, ErrorMessage: "dial tcp: connection refused"},
			{TestCaseID: "t4", Status: types.StatusSkipped, ErrorMessage: "unresolved"},
		},
	}
}

func TestBuildSummaryAndGroups(t *testing.T) {
	s := sampleSession()
	report := NewReporter(ReportingConfig{Detailed: true}, nil).Build(s.Results, s)

	assert.Equal(t, Summary{Total: 4, Passed: 1, Failed: 1, Errors: 1, Skipped: 1, PassRate: 25}, report.Summary)
	require.Len(t, report.Categories, 3)
	assert.Equal(t, types.CategoryPositive, report.Categories[0].Category)
	assert.Equal(t, types.CategoryNegative, report.Categories[1].Category)
	assert.Equal(t, types.CategoryEdge, report.Categories[2].Category)

	positive := report.Categories[0]
	assert.Equal(t, 2, positive.Summary.Total)
	assert.Equal(t, 50.0, positive.Summary.PassRate)
	assert.Equal(t, []string{"t1", "t4"}, []string{positive.Results[0].TestCaseID, positive.Results[1].TestCaseID})
	assert.Equal(t, s.CreatedAt, report.GeneratedAt)
}

func TestRenderMasksCredentials(t *testing.T) {
	s := sampleSession()
	r := NewReporter(ReportingConfig{Detailed: true}, nil)
	report := r.Build(s.Results, s)

	for _, format := range []string{"json", "html"} {
		out, err := r.Render(report, format)
		require.NoError(t, err, format)
		text := string(out)
		assert.NotContains(t, text, secretToken, format)
		assert.NotContains(t, text, "key-SECRET-9", format)
		assert.NotContains(t, text, "hunter2", format)
		assert.Contains(t, text, "***", format)
		assert.Contains(t, text, "https://api.example.com", format)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	s := sampleSession()
	r := NewReporter(ReportingConfig{Detailed: true}, nil)
	for _, format := range []string{"json", "html"} {
		first, err := r.Render(r.Build(s.Results, s), format)
		require.NoError(t, err)
		second, err := r.Render(r.Build(s.Results, s), format)
		require.NoError(t, err)
		assert.Equal(t, first, second, format)
	}
}

func TestHTMLIsSelfContained(t *testing.T) {
	s := sampleSession()
	r := NewReporter(ReportingConfig{}, nil)
	out, err := r.Render(r.Build(s.Results, s), "html")
	require.NoError(t, err)
	html := string(out)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "<link")
	assert.Contains(t, html, "25.00%")
	assert.Contains(t, html, "OPENAPI")
}

func TestGenerateReportWritesFiles(t *testing.T) {
	dir := t.TempDir()
	s := sampleSession()
	paths, err := NewReporter(ReportingConfig{Format: []string{"json", "html"}, OutputDir: dir}, nil).GenerateReport(s.Results, s)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "reports", "sess-1_report.json"),
		filepath.Join(dir, "reports", "sess-1_report.html"),
	}, paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestGenerateReportErrors(t *testing.T) {
	s := sampleSession()

	_, err := NewReporter(ReportingConfig{Format: []string{"pdf"}, OutputDir: t.TempDir()}, nil).GenerateReport(s.Results, s)
	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "pdf", ge.Format)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err = NewReporter(ReportingConfig{OutputDir: blocker}, nil).GenerateReport(s.Results, s)
	require.True(t, errors.As(err, &ge))
}
