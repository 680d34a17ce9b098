// Package service implements the boundary operations shared by the MCP
// server and the CLI: ingesting a specification, configuring its
// environment, generating scenarios and running tests.
package service

import (
	"context"
	"net/http"
	"time"

	"api-tester-mcp/internal/artifact"
	"api-tester-mcp/internal/config"
	"api-tester-mcp/internal/environment"
	"api-tester-mcp/internal/executor"
	"api-tester-mcp/internal/metrics"
	"api-tester-mcp/internal/reporter"
	"api-tester-mcp/internal/session"
	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = session.ErrNotFound
	// ErrRunInProgress is returned when a session is already being run
	ErrRunInProgress = session.ErrBusy
)

// ExampleSuggester proposes example values for endpoint inputs, keyed by
// "<location>.<name>"
type ExampleSuggester interface {
	SuggestExamples(ctx context.Context, ep types.Endpoint) (map[string]any, error)
}

// Option customizes a Service
type Option func(*Service)

// WithSuggester adds an example suggester applied at ingestion. Suggesters
// run in registration order; earlier suggestions win.
func WithSuggester(sg ExampleSuggester) Option {
	return func(s *Service) { s.suggesters = append(s.suggesters, sg) }
}

// WithMetrics records sessions and results
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithHTTPClient replaces the HTTP client used to reach the API under test
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns every session of the process
type Service struct {
	config     *config.Config
	logger     *zap.Logger
	store      *session.Store
	analyzer   *environment.Analyzer
	reporter   *reporter.Reporter
	artifacts  *artifact.Writer
	suggesters []ExampleSuggester
	metrics    *metrics.Recorder
	httpClient *http.Client
	now        func() time.Time
}

// New creates a service
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		config:    cfg,
		logger:    logger.Named("service"),
		store:     session.NewStore(),
		analyzer:  environment.NewAnalyzer(logger),
		reporter:  reporter.NewReporter(cfg.ReporterConfig(), logger),
		artifacts: artifact.NewWriter(cfg.Reporting.OutputDir),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) executorOptions() []executor.Option {
	var opts []executor.Option
	if s.httpClient != nil {
		opts = append(opts, executor.WithHTTPClient(s.httpClient))
	}
	if s.metrics != nil {
		opts = append(opts, executor.WithObserver(s.metrics))
	}
	return opts
}
