package service

import (
	"context"
	"fmt"
	"strings"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/parser"
	"api-tester-mcp/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestResult is returned by IngestSpec
type IngestResult struct {
	Success             bool              `json:"success"`
	SessionID           string            `json:"session_id"`
	SpecType            types.SpecType    `json:"spec_type"`
	EndpointsCount      int               `json:"endpoints_count"`
	BaseURL             string            `json:"base_url"`
	EnvironmentAnalysis types.EnvAnalysis `json:"environment_analysis"`
	SetupMessage        string            `json:"setup_message"`
}

// IngestSpec parses a specification and opens a session for it. Parse
// failures are returned as *parser.ParseError and create no session.
func (s *Service) IngestSpec(ctx context.Context, specType, content string) (*IngestResult, error) {
	st, err := types.ParseSpecType(specType)
	if err != nil {
		return nil, err
	}

	p := parser.NewSpecificationParser(s.logger)
	endpoints, err := p.Parse([]byte(content), st)
	if err != nil {
		return nil, err
	}
	endpoints = s.enrich(ctx, endpoints)

	analysis := s.analyzer.Analyze(p.Raw(), st, p.BaseURL())
	env := s.config.InitialEnvVars()
	// optional detected values such as server variable defaults let templated
	// URLs resolve without user input
	for _, v := range analysis.Optional {
		if v.DetectedValue == nil {
			continue
		}
		if _, set := env[v.Name]; !set {
			env[v.Name] = *v.DetectedValue
		}
	}

	sess := &types.TestSession{
		ID:          uuid.NewString(),
		SpecType:    st,
		SpecContent: content,
		BaseURL:     p.BaseURL(),
		Endpoints:   endpoints,
		Analysis:    analysis,
		EnvVars:     env,
		CreatedAt:   s.now().UTC(),
	}
	s.store.Create(sess)
	if s.metrics != nil {
		s.metrics.SessionCreated()
	}

	s.logger.Info("specification ingested",
		zap.String("session_id", sess.ID),
		zap.String("spec_type", string(st)),
		zap.Int("endpoints", len(endpoints)),
		zap.String("analysis", analysis.Summary))

	return &IngestResult{
		Success:             true,
		SessionID:           sess.ID,
		SpecType:            st,
		EndpointsCount:      len(endpoints),
		BaseURL:             mask.Text(sess.BaseURL, env),
		EnvironmentAnalysis: analysis,
		SetupMessage:        setupMessage(analysis, env),
	}, nil
}

// enrich applies every suggester to every endpoint. Failures are logged and
// leave the endpoint as declared.
func (s *Service) enrich(ctx context.Context, endpoints []types.Endpoint) []types.Endpoint {
	if len(s.suggesters) == 0 {
		return endpoints
	}
	out := make([]types.Endpoint, len(endpoints))
	for i, ep := range endpoints {
		for _, sg := range s.suggesters {
			examples, err := sg.SuggestExamples(ctx, ep)
			if err != nil {
				s.logger.Warn("example enrichment failed",
					zap.String("endpoint", ep.Key()),
					zap.Error(err))
				continue
			}
			ep = ep.WithExamples(examples)
		}
		out[i] = ep
	}
	return out
}

func setupMessage(analysis types.EnvAnalysis, env map[string]string) string {
	if len(analysis.Required) == 0 {
		return "No authentication or environment variables required."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d required environment variable(s) detected:", len(analysis.Required))
	missing := 0
	for _, v := range analysis.Required {
		b.WriteString("\n  • " + describe(v))
		if isSet(env, v.Name) {
			b.WriteString(" [configured]")
		} else {
			missing++
		}
	}
	if missing == 0 {
		b.WriteString("\nAll required environment variables are configured.")
	} else {
		b.WriteString("\nUse get_env_var_suggestions for detailed setup instructions.")
	}
	return b.String()
}

func describe(v types.EnvVarRequirement) string {
	line := v.Name + ": " + v.Description
	if v.DetectedValue != nil && !mask.IsSensitive(v.Name) {
		line += " (Suggested: " + *v.DetectedValue + ")"
	}
	return line
}

func isSet(env map[string]string, name string) bool {
	return env[name] != ""
}
