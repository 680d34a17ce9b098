package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"api-tester-mcp/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)

	get := types.TestCase{Method: "get"}
	post := types.TestCase{Method: "POST"}
	r.ObserveResult(get, types.TestResult{Status: types.StatusPassed, ExecutionTime: 0.02})
	r.ObserveResult(get, types.TestResult{Status: types.StatusPassed, ExecutionTime: 0.3})
	r.ObserveResult(post, types.TestResult{Status: types.StatusError, ExecutionTime: 1.2})
	r.ObserveResult(post, types.TestResult{Status: types.StatusSkipped})
	r.SessionCreated()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.resultsTotal.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resultsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resultsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionsTotal))

	// one series per method, skipped results excluded
	assert.Equal(t, 2, testutil.CollectAndCount(r.requestDuration))

	expected := `
# HELP apitester_sessions_total Total number of ingested specifications
# TYPE apitester_sessions_total counter
apitester_sessions_total 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "apitester_sessions_total"))
}

func TestHandler(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.ObserveResult(types.TestCase{Method: "GET"}, types.TestResult{Status: types.StatusFailed, ExecutionTime: 0.1})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apitester_test_results_total{status="failed"} 1`)
	assert.Contains(t, rec.Body.String(), "apitester_request_duration_seconds_bucket")
}
