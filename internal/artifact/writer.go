// Package artifact persists generated scenarios and test cases as JSON files
// and loads test-case lists back for re-execution.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/types"
)

// ScenarioDocument is the on-disk form of a scenario list
type ScenarioDocument struct {
	SessionID string           `json:"session_id"`
	Count     int              `json:"count"`
	Scenarios []types.Scenario `json:"scenarios"`
}

// TestCaseDocument is the on-disk form of a test-case list
type TestCaseDocument struct {
	SessionID string           `json:"session_id"`
	Count     int              `json:"count"`
	TestCases []types.TestCase `json:"test_cases"`
}

// Writer writes artifacts below a root directory
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteScenarios writes <dir>/scenarios/<session>_scenarios.json
func (w *Writer) WriteScenarios(sessionID string, scenarios []types.Scenario) (string, error) {
	doc := ScenarioDocument{SessionID: sessionID, Count: len(scenarios), Scenarios: scenarios}
	return w.write("scenarios", sessionID+"_scenarios.json", doc)
}

// WriteTestCases writes <dir>/test_cases/<session>_test_cases.json. Credential
// values, whether injected or taken from envVars, are masked.
func (w *Writer) WriteTestCases(sessionID string, cases []types.TestCase, envVars map[string]string) (string, error) {
	masked := make([]types.TestCase, len(cases))
	for i, tc := range cases {
		masked[i] = MaskTestCase(tc, envVars)
	}
	doc := TestCaseDocument{SessionID: sessionID, Count: len(cases), TestCases: masked}
	return w.write("test_cases", sessionID+"_test_cases.json", doc)
}

// MaskTestCase returns a copy of tc safe for display
func MaskTestCase(tc types.TestCase, envVars map[string]string) types.TestCase {
	out := tc
	out.URL = mask.Text(mask.URL(tc.URL, tc.CredentialParams...), envVars)
	out.Headers = mask.Headers(tc.Headers, tc.CredentialParams...)
	for k, v := range out.Headers {
		out.Headers[k] = mask.Text(v, envVars)
	}
	out.Body = mask.Body(tc.Body)
	if s, ok := out.Body.(string); ok {
		out.Body = mask.Text(s, envVars)
	}
	return out
}

func (w *Writer) write(sub, name string, v any) (string, error) {
	dir := filepath.Join(w.dir, sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", sub, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
