package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
)

// Report represents the test execution report
type Report struct {
	SessionID   string            `json:"session_id"`
	SpecType    types.SpecType    `json:"spec_type"`
	BaseURL     string            `json:"base_url"`
	GeneratedAt time.Time         `json:"generated_at"`
	Summary     Summary           `json:"summary"`
	Categories  []CategoryGroup   `json:"categories"`
	Environment map[string]string `json:"environment,omitempty"`
}

// Summary holds the result counts of a report or of one category
type Summary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Errors   int     `json:"error"`
	Skipped  int     `json:"skipped"`
	PassRate float64 `json:"pass_rate"`
}

// CategoryGroup collects the results whose scenario belongs to one category
type CategoryGroup struct {
	Category types.Category `json:"category"`
	Summary  Summary        `json:"summary"`
	Results  []Entry        `json:"results"`
}

// Entry is one result joined with its test case, every value masked
type Entry struct {
	TestCaseID       string                  `json:"test_case_id"`
	ScenarioID       string                  `json:"scenario_id,omitempty"`
	Name             string                  `json:"name"`
	Method           string                  `json:"method,omitempty"`
	URL              string                  `json:"url,omitempty"`
	RequestHeaders   map[string]string       `json:"request_headers,omitempty"`
	RequestBody      string                  `json:"request_body,omitempty"`
	ExpectedStatus   int                     `json:"expected_status,omitempty"`
	Status           types.ResultStatus      `json:"status"`
	ResponseStatus   *int                    `json:"response_status,omitempty"`
	ResponseBody     string                  `json:"response_body,omitempty"`
	ExecutionTime    float64                 `json:"execution_time"`
	ErrorMessage     string                  `json:"error_message,omitempty"`
	AssertionsPassed int                     `json:"assertions_passed"`
	AssertionsFailed int                     `json:"assertions_failed"`
	AssertionDetails []types.AssertionDetail `json:"assertion_details,omitempty"`
}

// ReportingConfig holds the configuration for reporting
type ReportingConfig struct {
	Format    []string
	OutputDir string
	Detailed  bool
}

// GenerationError reports a failure of the reporting step only; results and
// earlier artifacts stay valid.
type GenerationError struct {
	Format string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate %s report: %v", e.Format, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Reporter handles the generation of test reports
type Reporter struct {
	config ReportingConfig
	logger *zap.Logger
}

// NewReporter creates a new instance of Reporter
func NewReporter(config ReportingConfig, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(config.Format) == 0 {
		config.Format = []string{"json", "html"}
	}
	return &Reporter{config: config, logger: logger.Named("reporter")}
}

// Build aggregates results into a report. It is deterministic: no clock or
// randomness is read, the timestamp comes from the session.
func (r *Reporter) Build(results []types.TestResult, session *types.TestSession) Report {
	report := Report{
		SessionID:   session.ID,
		SpecType:    session.SpecType,
		BaseURL:     mask.Text(session.BaseURL, session.EnvVars),
		GeneratedAt: session.CreatedAt,
		Environment: mask.Map(session.EnvVars),
	}
	if session.CompletedAt != nil {
		report.GeneratedAt = *session.CompletedAt
	}

	groups := make(map[types.Category]*CategoryGroup)
	order := append([]types.Category(nil), types.Categories...)
	for _, res := range results {
		tc, _ := session.TestCase(res.TestCaseID)
		sc, ok := session.Scenario(tc.ScenarioRef)
		category := sc.Category
		if !ok {
			category = "unknown"
		}
		g, exists := groups[category]
		if !exists {
			g = &CategoryGroup{Category: category, Results: make([]Entry, 0)}
			groups[category] = g
			if category == "unknown" {
				order = append(order, category)
			}
		}
		g.Results = append(g.Results, r.entry(res, tc, session.EnvVars))
		count(&g.Summary, res.Status)
		count(&report.Summary, res.Status)
	}

	report.Categories = make([]CategoryGroup, 0, len(groups))
	for _, c := range order {
		if g, ok := groups[c]; ok {
			g.Summary.PassRate = passRate(g.Summary)
			report.Categories = append(report.Categories, *g)
		}
	}
	report.Summary.PassRate = passRate(report.Summary)
	return report
}

func (r *Reporter) entry(res types.TestResult, tc types.TestCase, env map[string]string) Entry {
	e := Entry{
		TestCaseID:       res.TestCaseID,
		ScenarioID:       tc.ScenarioRef,
		Name:             tc.Name,
		Method:           tc.Method,
		URL:              mask.Text(mask.URL(tc.URL, tc.CredentialParams...), env),
		ExpectedStatus:   tc.ExpectedStatus,
		Status:           res.Status,
		ResponseStatus:   res.ResponseStatus,
		ExecutionTime:    res.ExecutionTime,
		ErrorMessage:     mask.Text(res.ErrorMessage, env),
		AssertionsPassed: res.AssertionsPassed,
		AssertionsFailed: res.AssertionsFailed,
		AssertionDetails: res.AssertionDetails,
	}
	if e.Name == "" {
		e.Name = res.TestCaseID
	}
	if r.config.Detailed {
		e.RequestHeaders = mask.Headers(tc.Headers, tc.CredentialParams...)
		e.RequestBody = maskedJSON(tc.Body, env)
		e.ResponseBody = maskedText(res.ResponseBody, env)
	}
	return e
}

func maskedJSON(v any, env map[string]string) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(mask.Body(v))
	if err != nil {
		return ""
	}
	return mask.Text(string(data), env)
}

func maskedText(s string, env map[string]string) string {
	if s == "" {
		return ""
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		return maskedJSON(decoded, env)
	}
	return mask.Text(s, env)
}

func count(s *Summary, status types.ResultStatus) {
	s.Total++
	switch status {
	case types.StatusPassed:
		s.Passed++
	case types.StatusFailed:
		s.Failed++
	case types.StatusError:
		s.Errors++
	case types.StatusSkipped:
		s.Skipped++
	}
}

// passRate is the share of passed tests among all tests, in percent with two decimals
func passRate(s Summary) float64 {
	if s.Total == 0 {
		return 0
	}
	return math.Round(float64(s.Passed)/float64(s.Total)*10000) / 100
}

// Render encodes the report in one format
func (r *Reporter) Render(report Report, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, &GenerationError{Format: format, Err: err}
		}
		return data, nil
	case "html":
		var buf bytes.Buffer
		if err := htmlReport.Execute(&buf, report); err != nil {
			return nil, &GenerationError{Format: format, Err: err}
		}
		return buf.Bytes(), nil
	}
	return nil, &GenerationError{Format: format, Err: fmt.Errorf("unsupported report format")}
}

// GenerateReport builds the report and writes it in every configured format
// under <output_dir>/reports. It returns the written paths.
func (r *Reporter) GenerateReport(results []types.TestResult, session *types.TestSession) ([]string, error) {
	report := r.Build(results, session)

	dir := filepath.Join(r.config.OutputDir, "reports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &GenerationError{Format: r.config.Format[0], Err: err}
	}

	var paths []string
	for _, format := range r.config.Format {
		data, err := r.Render(report, format)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_report.%s", session.ID, format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, &GenerationError{Format: format, Err: err}
		}
		paths = append(paths, path)
		r.logger.Info("report written", zap.String("format", format), zap.String("path", path))
	}
	return paths, nil
}
