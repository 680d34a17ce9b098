package seed

import (
	"context"
	"fmt"
	"strings"

	"api-tester-mcp/internal/placeholder"
	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
)

// Sampler fills endpoint inputs with values taken from existing database rows
type Sampler struct {
	source RowSource
	logger *zap.Logger
	closer func() error
}

// NewSampler creates a sampler over an arbitrary row source
func NewSampler(source RowSource, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{source: source, logger: logger}
}

// Open connects to the configured database
func Open(ctx context.Context, cfg DBConfig, logger *zap.Logger) (*Sampler, error) {
	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := NewSampler(&sqlSource{db: db, dialect: cfg.Type}, logger)
	s.closer = db.Close
	return s, nil
}

// Close releases the database connection
func (s *Sampler) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// SuggestExamples looks up the table named after the endpoint's resource and
// maps one of its rows onto the endpoint's parameters and body properties.
func (s *Sampler) SuggestExamples(ctx context.Context, ep types.Endpoint) (map[string]any, error) {
	var row map[string]any
	var table string
	for _, candidate := range tableCandidates(ep.Path) {
		r, err := s.source.SampleRow(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if len(r) > 0 {
			row, table = r, candidate
			break
		}
	}
	if row == nil {
		return nil, nil
	}

	columns := make(map[string]any, len(row))
	for name, v := range row {
		if v != nil {
			columns[normalizeName(name)] = v
		}
	}

	examples := make(map[string]any)
	for _, p := range ep.Parameters {
		if p.Example != nil || ep.IsCredentialParam(p) {
			continue
		}
		if v, ok := columns[normalizeName(p.Name)]; ok {
			examples[types.FieldRef(p.In, p.Name)] = v
		}
	}
	if ep.RequestBody != nil && ep.RequestBody.Schema != nil {
		for name, prop := range ep.RequestBody.Schema.Properties {
			if prop == nil || prop.Example != nil {
				continue
			}
			if v, ok := columns[normalizeName(name)]; ok {
				examples[types.FieldRef(types.LocationBody, name)] = v
			}
		}
	}

	s.logger.Debug("sampled examples from database",
		zap.String("endpoint", ep.Key()),
		zap.String("table", table),
		zap.Int("fields", len(examples)))
	return examples, nil
}

// tableCandidates derives table names from the last static path segment,
// e.g. /api/users/{id} -> users, user
func tableCandidates(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var resource string
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" && !placeholder.Has(parts[i]) {
			resource = strings.ToLower(strings.ReplaceAll(parts[i], "-", "_"))
			break
		}
	}
	if resource == "" || !identRe.MatchString(resource) {
		return nil
	}

	candidates := []string{resource}
	add := func(name string) {
		for _, c := range candidates {
			if c == name {
				return
			}
		}
		candidates = append(candidates, name)
	}
	switch {
	case strings.HasSuffix(resource, "ies"):
		add(strings.TrimSuffix(resource, "ies") + "y")
	case strings.HasSuffix(resource, "ses"), strings.HasSuffix(resource, "xes"):
		add(strings.TrimSuffix(resource, "es"))
	case strings.HasSuffix(resource, "s"):
		add(strings.TrimSuffix(resource, "s"))
	case strings.HasSuffix(resource, "y"):
		add(strings.TrimSuffix(resource, "y") + "ies")
	default:
		add(resource + "s")
	}
	return candidates
}

func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}
