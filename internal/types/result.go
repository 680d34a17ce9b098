package types

import "time"

// ResultStatus is the final state of one executed test case
type ResultStatus string

const (
	StatusPassed  ResultStatus = "passed"
	StatusFailed  ResultStatus = "failed"
	StatusError   ResultStatus = "error"
	StatusSkipped ResultStatus = "skipped"
)

// AssertionDetail records the outcome of one assertion
type AssertionDetail struct {
	Assertion string `json:"assertion"`
	Passed    bool   `json:"passed"`
	Message   string `json:"message"`
}

// TestResult represents the result of a single test case
type TestResult struct {
	TestCaseID       string            `json:"test_case_id"`
	Status           ResultStatus      `json:"status"`
	ExecutionTime    float64           `json:"execution_time"`
	ResponseStatus   *int              `json:"response_status,omitempty"`
	ResponseBody     string            `json:"response_body,omitempty"`
	ResponseHeaders  map[string]string `json:"response_headers,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	AssertionsPassed int               `json:"assertions_passed"`
	AssertionsFailed int               `json:"assertions_failed"`
	AssertionDetails []AssertionDetail `json:"assertion_details,omitempty"`
}

// TestSession aggregates every artifact of one ingested specification.
// Cross references are identifiers resolved against the session's own slices.
type TestSession struct {
	ID          string            `json:"id"`
	SpecType    SpecType          `json:"spec_type"`
	SpecContent string            `json:"-"`
	BaseURL     string            `json:"base_url"`
	Endpoints   []Endpoint        `json:"endpoints"`
	Analysis    EnvAnalysis       `json:"environment_analysis"`
	Scenarios   []Scenario        `json:"scenarios,omitempty"`
	TestCases   []TestCase        `json:"test_cases,omitempty"`
	Results     []TestResult      `json:"results,omitempty"`
	EnvVars     map[string]string `json:"-"`
	ReportPaths []string          `json:"report_paths,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Endpoint resolves an endpoint reference
func (s *TestSession) Endpoint(ref int) (Endpoint, bool) {
	if ref < 0 || ref >= len(s.Endpoints) {
		return Endpoint{}, false
	}
	return s.Endpoints[ref], true
}

// Scenario resolves a scenario id
func (s *TestSession) Scenario(id string) (Scenario, bool) {
	for _, sc := range s.Scenarios {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scenario{}, false
}

// TestCase resolves a test case id
func (s *TestSession) TestCase(id string) (TestCase, bool) {
	for _, tc := range s.TestCases {
		if tc.ID == id {
			return tc, true
		}
	}
	return TestCase{}, false
}
