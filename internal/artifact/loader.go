package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/placeholder"
	"api-tester-mcp/internal/types"
)

// Loader reads test-case lists, either a TestCaseDocument or a bare array
type Loader struct {
	envVars map[string]string
}

// NewLoader creates a loader that resolves {name} placeholders from envVars
func NewLoader(envVars map[string]string) *Loader {
	return &Loader{envVars: envVars}
}

// LoadTestCases loads and resolves the test cases in path. Cases that still
// reference unknown variables, or that carry masked credentials, come back
// unresolved so execution skips them.
func (l *Loader) LoadTestCases(path string) ([]types.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test cases: %w", err)
	}

	var cases []types.TestCase
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &cases)
	} else {
		var doc TestCaseDocument
		err = json.Unmarshal(trimmed, &doc)
		cases = doc.TestCases
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse test cases: %w", err)
	}

	for i := range cases {
		if cases[i].ID == "" {
			return nil, fmt.Errorf("test case %d has no id", i)
		}
		cases[i] = l.resolve(cases[i])
	}
	return cases, nil
}

func (l *Loader) resolve(tc types.TestCase) types.TestCase {
	expanded := map[string]bool{}
	lookup := func(name string) (string, bool) {
		v, ok := l.envVars[name]
		if ok && v != "" {
			expanded[name] = true
			return v, true
		}
		return "", false
	}
	missing := map[string]bool{}
	for _, m := range tc.MissingVariables {
		missing[m] = true
	}
	expand := func(s string) string {
		out, unresolved := placeholder.Expand(s, lookup)
		for _, m := range unresolved {
			missing[m] = true
		}
		return out
	}

	tc.URL = expand(tc.URL)
	if strings.Contains(tc.URL, mask.Token) {
		missing["masked credential in url"] = true
	}
	if tc.Headers != nil {
		headers := make(map[string]string, len(tc.Headers))
		for k, v := range tc.Headers {
			headers[k] = expand(v)
			if strings.Contains(v, mask.Token) {
				missing["masked credential in header "+k] = true
			}
		}
		tc.Headers = headers
	}
	tc.Body = expandBody(tc.Body, expand)

	for name := range expanded {
		delete(missing, name)
	}
	tc.MissingVariables = nil
	for name := range missing {
		tc.MissingVariables = append(tc.MissingVariables, name)
	}
	sort.Strings(tc.MissingVariables)
	tc.Unresolved = len(tc.MissingVariables) > 0
	return tc
}

func expandBody(v any, expand func(string) string) any {
	switch t := v.(type) {
	case string:
		return expand(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = expandBody(val, expand)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = expandBody(val, expand)
		}
		return out
	}
	return v
}
