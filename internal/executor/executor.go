package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// defaultMaxBodyBytes caps how much of a response body is kept in a result
const defaultMaxBodyBytes = 1 << 20

// Config holds configuration for test execution
type Config struct {
	Concurrent bool
	MaxWorkers int
	// Timeout bounds the whole run; zero means no overall deadline
	Timeout        time.Duration
	RequestTimeout time.Duration
	// RateLimit is the request rate per second; zero disables pacing
	RateLimit    float64
	Retry        RetryConfig
	MaxBodyBytes int64
}

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Observer is notified of every result as soon as it is produced. It may be
// called from several goroutines at once.
type Observer interface {
	ObserveResult(tc types.TestCase, result types.TestResult)
}

// Option customizes a TestExecutor
type Option func(*TestExecutor)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(e *TestExecutor) { e.client = client }
}

// WithObserver registers an observer for results
func WithObserver(o Observer) Option {
	return func(e *TestExecutor) { e.observer = o }
}

// TestExecutor runs test cases through a bounded worker pool
type TestExecutor struct {
	config   Config
	client   *http.Client
	limiter  *rate.Limiter
	observer Observer
	logger   *zap.Logger
}

// NewTestExecutor creates a new test executor
func NewTestExecutor(config Config, logger *zap.Logger, opts ...Option) *TestExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxWorkers < 1 || !config.Concurrent {
		config.MaxWorkers = 1
	}
	if config.Retry.Attempts < 1 {
		config.Retry.Attempts = 1
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}

	e := &TestExecutor{
		config: config,
		client: &http.Client{},
		logger: logger.Named("executor"),
	}
	if config.RateLimit > 0 {
		burst := int(config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every case and returns exactly one result per case in
// submission order. Unresolved cases and cases not started before the run is
// cancelled are reported as skipped.
func (e *TestExecutor) Execute(ctx context.Context, cases []types.TestCase) []types.TestResult {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	results := make([]types.TestResult, len(cases))
	started := make([]bool, len(cases))
	sem := semaphore.NewWeighted(int64(e.config.MaxWorkers))
	var wg sync.WaitGroup

	for i, tc := range cases {
		if tc.Unresolved {
			started[i] = true
			results[i] = skipped(tc, "unresolved test case, missing variables: "+strings.Join(tc.MissingVariables, ", "))
			e.observe(tc, results[i])
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		started[i] = true
		wg.Add(1)
		go func(i int, tc types.TestCase) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = e.runCase(ctx, tc)
			e.observe(tc, results[i])
		}(i, tc)
	}
	wg.Wait()

	notStarted := 0
	for i, tc := range cases {
		if started[i] {
			continue
		}
		notStarted++
		results[i] = skipped(tc, "run cancelled before the test case started: "+errString(ctx.Err()))
		e.observe(tc, results[i])
	}
	if notStarted > 0 {
		e.logger.Warn("run cancelled", zap.Int("skipped", notStarted), zap.Error(ctx.Err()))
	}
	return results
}

func (e *TestExecutor) observe(tc types.TestCase, r types.TestResult) {
	if e.observer != nil {
		e.observer.ObserveResult(tc, r)
	}
}

// runCase isolates one case: panics and transport faults become result data
func (e *TestExecutor) runCase(ctx context.Context, tc types.TestCase) (result types.TestResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("test case panicked", zap.String("test_case_id", tc.ID), zap.Any("panic", r))
			result = types.TestResult{
				TestCaseID:   tc.ID,
				Status:       types.StatusError,
				ErrorMessage: fmt.Sprintf("unexpected failure: %v", r),
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return skipped(tc, "run cancelled before the test case started: "+err.Error())
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return skipped(tc, "run cancelled while waiting for rate limiter: "+err.Error())
		}
	}

	for attempt := 1; ; attempt++ {
		result = e.attempt(ctx, tc)
		if result.Status != types.StatusError || attempt >= e.config.Retry.Attempts {
			return result
		}
		e.logger.Debug("retrying test case",
			zap.String("test_case_id", tc.ID),
			zap.Int("attempt", attempt),
			zap.String("error", result.ErrorMessage))
		select {
		case <-ctx.Done():
			return result
		case <-time.After(e.config.Retry.Delay):
		}
	}
}

// attempt issues the request once and evaluates the assertions
func (e *TestExecutor) attempt(ctx context.Context, tc types.TestCase) types.TestResult {
	result := types.TestResult{TestCaseID: tc.ID}

	reqCtx := ctx
	if e.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, e.config.RequestTimeout)
		defer cancel()
	}

	req, err := buildRequest(reqCtx, tc)
	if err != nil {
		result.Status = types.StatusError
		result.ErrorMessage = err.Error()
		return result
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		result.ExecutionTime = time.Since(start).Seconds()
		result.Status = types.StatusError
		result.ErrorMessage = requestError(err)
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.config.MaxBodyBytes))
	result.ExecutionTime = time.Since(start).Seconds()
	if err != nil {
		result.Status = types.StatusError
		result.ErrorMessage = fmt.Sprintf("failed to read response body: %v", err)
		return result
	}

	status := resp.StatusCode
	result.ResponseStatus = &status
	result.ResponseBody = string(body)
	result.ResponseHeaders = flattenHeaders(resp.Header)

	result.AssertionDetails = evaluate(tc.Assertions, status, resp.Header.Get("Content-Type"), body)
	for _, d := range result.AssertionDetails {
		if d.Passed {
			result.AssertionsPassed++
		} else {
			result.AssertionsFailed++
		}
	}
	result.Status = types.StatusPassed
	if result.AssertionsFailed > 0 {
		result.Status = types.StatusFailed
	}
	return result
}

// buildRequest creates an HTTP request for the given test case
func buildRequest(ctx context.Context, tc types.TestCase) (*http.Request, error) {
	var body io.Reader
	contentType := ""
	for k, v := range tc.Headers {
		if strings.EqualFold(k, "Content-Type") {
			contentType = v
		}
	}
	var multipartType string
	if tc.Body != nil {
		var err error
		body, contentType, err = encodeBody(tc.Body, contentType)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(contentType, "multipart/") {
			multipartType = contentType
		}
	}

	req, err := http.NewRequestWithContext(ctx, tc.Method, tc.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range tc.Headers {
		req.Header.Set(k, v)
	}
	if multipartType != "" {
		// the declared type lacks the generated boundary
		req.Header.Set("Content-Type", multipartType)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// encodeBody serializes a body for its declared content type. Object bodies
// are form encoded for urlencoded and multipart types and JSON otherwise.
// The returned content type carries the multipart boundary when one is made.
func encodeBody(v any, contentType string) (io.Reader, string, error) {
	lower := strings.ToLower(contentType)
	if s, ok := v.(string); ok && contentType != "" && !strings.Contains(lower, "json") {
		return strings.NewReader(s), contentType, nil
	}

	if fields, ok := v.(map[string]any); ok {
		switch {
		case strings.Contains(lower, "application/x-www-form-urlencoded"):
			form := url.Values{}
			for _, k := range sortedKeys(fields) {
				for _, value := range formValues(fields[k]) {
					form.Add(k, value)
				}
			}
			return strings.NewReader(form.Encode()), contentType, nil
		case strings.Contains(lower, "multipart/form-data"):
			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			for _, k := range sortedKeys(fields) {
				for _, value := range formValues(fields[k]) {
					if err := w.WriteField(k, value); err != nil {
						return nil, "", fmt.Errorf("failed to write form field %s: %w", k, err)
					}
				}
			}
			if err := w.Close(); err != nil {
				return nil, "", fmt.Errorf("failed to encode multipart body: %w", err)
			}
			return &buf, w.FormDataContentType(), nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	if contentType == "" {
		contentType = "application/json"
	}
	return bytes.NewReader(data), contentType, nil
}

// formValues renders one form field; arrays become repeated fields and
// nested objects are sent as JSON text
func formValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, formValues(item)...)
		}
		return out
	case map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return []string{fmt.Sprint(t)}
		}
		return []string{string(data)}
	}
	return []string{fmt.Sprint(v)}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requestError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "request aborted: " + err.Error()
	}
	return err.Error()
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func skipped(tc types.TestCase, reason string) types.TestResult {
	return types.TestResult{TestCaseID: tc.ID, Status: types.StatusSkipped, ErrorMessage: reason}
}

func errString(err error) string {
	if err == nil {
		return "cancelled"
	}
	return err.Error()
}
