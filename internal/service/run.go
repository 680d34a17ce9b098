package service

import (
	"context"
	"time"

	"api-tester-mcp/internal/artifact"
	"api-tester-mcp/internal/executor"
	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/reporter"
	"api-tester-mcp/internal/scenario"
	"api-tester-mcp/internal/testcase"
	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
)

// ScenariosResult is returned by GenerateScenarios
type ScenariosResult struct {
	Success        bool                   `json:"success"`
	SessionID      string                 `json:"session_id"`
	ScenariosCount int                    `json:"scenarios_count"`
	Breakdown      map[types.Category]int `json:"breakdown"`
	Scenarios      []types.Scenario       `json:"scenarios"`
	ScenariosFile  string                 `json:"scenarios_file,omitempty"`
}

// GenerateScenarios replaces the session's scenarios. Test cases and results
// of an earlier generation are discarded with them.
func (s *Service) GenerateScenarios(ctx context.Context, sessionID string, opts scenario.Options) (*ScenariosResult, error) {
	end, err := s.store.BeginRun(sessionID)
	if err != nil {
		return nil, err
	}
	defer end()

	scenarios, path, err := s.generateScenarios(sessionID, opts)
	if err != nil {
		return nil, err
	}

	return &ScenariosResult{
		Success:        true,
		SessionID:      sessionID,
		ScenariosCount: len(scenarios),
		Breakdown:      breakdown(scenarios),
		Scenarios:      scenarios,
		ScenariosFile:  path,
	}, nil
}

func (s *Service) generateScenarios(sessionID string, opts scenario.Options) ([]types.Scenario, string, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, "", err
	}
	scenarios := scenario.NewGenerator(s.logger, opts).Generate(sess.Endpoints)

	_, err = s.store.Update(sessionID, func(ts *types.TestSession) error {
		ts.Scenarios = scenarios
		ts.TestCases = nil
		ts.Results = nil
		ts.ReportPaths = nil
		ts.CompletedAt = nil
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	path, err := s.artifacts.WriteScenarios(sessionID, scenarios)
	if err != nil {
		s.logger.Warn("failed to write scenarios", zap.String("session_id", sessionID), zap.Error(err))
	}
	return scenarios, path, nil
}

func breakdown(scenarios []types.Scenario) map[types.Category]int {
	out := make(map[types.Category]int, len(types.Categories))
	for _, c := range types.Categories {
		out[c] = 0
	}
	for _, sc := range scenarios {
		out[sc.Category]++
	}
	return out
}

// RunResult is returned by RunAPITests
type RunResult struct {
	Success       bool               `json:"success"`
	SessionID     string             `json:"session_id"`
	Summary       reporter.Summary   `json:"summary"`
	Results       []types.TestResult `json:"results"`
	TestCasesFile string             `json:"test_cases_file,omitempty"`
	ReportPaths   []string           `json:"report_paths,omitempty"`
	ReportError   string             `json:"report_error,omitempty"`
}

// RunAPITests lowers the session's scenarios with its current variables,
// executes them and renders the reports. Scenarios are generated with
// default options when none exist. A reporting failure is returned in
// ReportError; the results stay stored in the session.
func (s *Service) RunAPITests(ctx context.Context, sessionID string) (*RunResult, error) {
	e := executor.NewTestExecutor(s.config.ExecutorConfig(), s.logger, s.executorOptions()...)
	return s.run(ctx, sessionID, s.lowerScenarios, e.Execute)
}

// RunTestCases executes a previously written test case artifact against the
// session instead of lowering its scenarios. Placeholders left in the file
// are resolved with the session's current variables.
func (s *Service) RunTestCases(ctx context.Context, sessionID, path string) (*RunResult, error) {
	load := func(sess *types.TestSession) ([]types.TestCase, error) {
		return artifact.NewLoader(sess.EnvVars).LoadTestCases(path)
	}
	e := executor.NewTestExecutor(s.config.ExecutorConfig(), s.logger, s.executorOptions()...)
	return s.run(ctx, sessionID, load, e.Execute)
}

// SimulateRun is RunAPITests with reproducible simulated results instead of
// network calls
func (s *Service) SimulateRun(ctx context.Context, sessionID string, seed int64) (*RunResult, error) {
	return s.run(ctx, sessionID, s.lowerScenarios, func(_ context.Context, cases []types.TestCase) []types.TestResult {
		return executor.Simulate(cases, seed)
	})
}

type (
	executeFunc func(ctx context.Context, cases []types.TestCase) []types.TestResult
	casesFunc   func(sess *types.TestSession) ([]types.TestCase, error)
)

// lowerScenarios builds test cases from the session's scenarios, generating
// them with default options when none exist
func (s *Service) lowerScenarios(sess *types.TestSession) ([]types.TestCase, error) {
	if len(sess.Scenarios) == 0 {
		scenarios, _, err := s.generateScenarios(sess.ID, scenario.DefaultOptions())
		if err != nil {
			return nil, err
		}
		sess.Scenarios = scenarios
	}
	return testcase.NewGenerator(s.logger).Generate(sess.BaseURL, sess.EnvVars, sess.Endpoints, sess.Scenarios), nil
}

func (s *Service) run(ctx context.Context, sessionID string, load casesFunc, execute executeFunc) (*RunResult, error) {
	end, err := s.store.BeginRun(sessionID)
	if err != nil {
		return nil, err
	}
	defer end()

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	cases, err := load(sess)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Success: true, SessionID: sessionID}
	if path, err := s.artifacts.WriteTestCases(sessionID, cases, sess.EnvVars); err != nil {
		s.logger.Warn("failed to write test cases", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		result.TestCasesFile = path
	}

	start := time.Now()
	results := execute(ctx, cases)
	completed := s.now().UTC()

	sess, err = s.store.Update(sessionID, func(ts *types.TestSession) error {
		ts.TestCases = cases
		ts.Results = results
		ts.CompletedAt = &completed
		ts.ReportPaths = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := s.reporter.Build(results, sess)
	result.Summary = report.Summary
	result.Results = maskResults(results, sess.EnvVars)

	paths, err := s.reporter.GenerateReport(results, sess)
	result.ReportPaths = paths
	if err != nil {
		result.ReportError = mask.Text(err.Error(), sess.EnvVars)
		s.logger.Error("report generation failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if len(paths) > 0 {
		if _, err := s.store.Update(sessionID, func(ts *types.TestSession) error {
			ts.ReportPaths = paths
			return nil
		}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("test run completed",
		zap.String("session_id", sessionID),
		zap.Int("total", report.Summary.Total),
		zap.Int("passed", report.Summary.Passed),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("errors", report.Summary.Errors),
		zap.Int("skipped", report.Summary.Skipped),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// maskResults hides credential values a target API may have echoed back
func maskResults(results []types.TestResult, env map[string]string) []types.TestResult {
	out := make([]types.TestResult, len(results))
	for i, r := range results {
		r.ResponseBody = mask.Text(r.ResponseBody, env)
		r.ErrorMessage = mask.Text(r.ErrorMessage, env)
		if r.ResponseHeaders != nil {
			headers := mask.Headers(r.ResponseHeaders)
			for k, v := range headers {
				headers[k] = mask.Text(v, env)
			}
			r.ResponseHeaders = headers
		}
		out[i] = r
	}
	return out
}

// StatusResult is returned by GetSessionStatus
type StatusResult struct {
	SessionID       string            `json:"session_id"`
	SpecType        types.SpecType    `json:"spec_type"`
	BaseURL         string            `json:"base_url"`
	EndpointsCount  int               `json:"endpoints_count"`
	ScenariosCount  int               `json:"scenarios_count"`
	TestCasesCount  int               `json:"test_cases_count"`
	ResultsCount    int               `json:"results_count"`
	Running         bool              `json:"running"`
	EnvVars         map[string]string `json:"env_vars"`
	RequiredMissing []string          `json:"required_missing"`
	Summary         *reporter.Summary `json:"summary,omitempty"`
	ReportPaths     []string          `json:"report_paths,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// GetSessionStatus summarizes a session
func (s *Service) GetSessionStatus(sessionID string) (*StatusResult, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	status := &StatusResult{
		SessionID:       sess.ID,
		SpecType:        sess.SpecType,
		BaseURL:         mask.Text(sess.BaseURL, sess.EnvVars),
		EndpointsCount:  len(sess.Endpoints),
		ScenariosCount:  len(sess.Scenarios),
		TestCasesCount:  len(sess.TestCases),
		ResultsCount:    len(sess.Results),
		Running:         s.store.Running(sessionID),
		EnvVars:         mask.Map(sess.EnvVars),
		RequiredMissing: requiredMissing(sess),
		ReportPaths:     sess.ReportPaths,
		CreatedAt:       sess.CreatedAt,
		CompletedAt:     sess.CompletedAt,
	}
	if len(sess.Results) > 0 {
		summary := s.reporter.Build(sess.Results, sess).Summary
		status.Summary = &summary
	}
	return status, nil
}

// Session returns a copy of the session, for callers that render it themselves
func (s *Service) Session(sessionID string) (*types.TestSession, error) {
	return s.store.Get(sessionID)
}
