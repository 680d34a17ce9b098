package metrics

import (
	"fmt"
	"net/http"
	"strings"

	"api-tester-mcp/internal/executor"
	"api-tester-mcp/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compile-time interface check.
var _ executor.Observer = (*Recorder)(nil)

// Recorder exposes execution metrics for Prometheus scraping. It keeps its own
// registry so several recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	resultsTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionsTotal   prometheus.Counter
}

// NewRecorder creates and registers all metrics
func NewRecorder() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.resultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apitester_test_results_total",
			Help: "Total number of executed test cases by final status",
		},
		[]string{"status"},
	)
	r.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apitester_request_duration_seconds",
			Help:    "Wall clock time of executed test cases in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"method"},
	)
	r.sessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apitester_sessions_total",
		Help: "Total number of ingested specifications",
	})

	for _, c := range []prometheus.Collector{r.resultsTotal, r.requestDuration, r.sessionsTotal} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return r, nil
}

// ObserveResult records one test result. Skipped cases never issued a request
// and are left out of the duration histogram.
func (r *Recorder) ObserveResult(tc types.TestCase, result types.TestResult) {
	r.resultsTotal.WithLabelValues(string(result.Status)).Inc()
	if result.Status == types.StatusSkipped {
		return
	}
	r.requestDuration.WithLabelValues(strings.ToUpper(tc.Method)).Observe(result.ExecutionTime)
}

// SessionCreated counts an ingested specification
func (r *Recorder) SessionCreated() {
	r.sessionsTotal.Inc()
}

// Registry returns the recorder's registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
