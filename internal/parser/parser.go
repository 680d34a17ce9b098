package parser

import (
	"errors"
	"fmt"
	"strings"

	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Document is the normalized form of an ingested specification
type Document struct {
	BaseURL   string
	Endpoints []types.Endpoint
}

// FormatParser converts one specification dialect into a Document.
// raw is the already decoded document tree.
type FormatParser interface {
	Parse(content []byte, raw map[string]any) (*Document, error)
}

// SpecificationParser normalizes OpenAPI and Postman documents into endpoints
type SpecificationParser struct {
	formats map[types.SpecType]FormatParser
	logger  *zap.Logger

	baseURL string
	raw     map[string]any
}

// NewSpecificationParser creates a parser with the built-in formats registered
func NewSpecificationParser(logger *zap.Logger) *SpecificationParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &SpecificationParser{
		formats: make(map[types.SpecType]FormatParser),
		logger:  logger.Named("parser"),
	}
	p.Register(types.SpecOpenAPI, &OpenAPIParser{})
	p.Register(types.SpecPostman, &PostmanParser{})
	return p
}

// Register adds or replaces the parser used for a specification type
func (p *SpecificationParser) Register(specType types.SpecType, fp FormatParser) {
	p.formats[specType] = fp
}

// Parse converts content into an ordered endpoint list and records the
// resolved base URL. On failure the parser holds no state from this call.
func (p *SpecificationParser) Parse(content []byte, specType types.SpecType) ([]types.Endpoint, error) {
	p.baseURL = ""
	p.raw = nil

	fp, ok := p.formats[specType]
	if !ok {
		return nil, newParseError(specType, ReasonUnsupported, "no parser registered", nil)
	}

	raw, err := DecodeDocument(content)
	if err != nil {
		return nil, newParseError(specType, ReasonMalformed, "", err)
	}

	doc, err := fp.Parse(content, raw)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, newParseError(specType, ReasonMalformed, "", err)
	}

	p.baseURL = doc.BaseURL
	p.raw = raw
	p.logger.Debug("specification parsed",
		zap.String("spec_type", string(specType)),
		zap.Int("endpoints", len(doc.Endpoints)),
		zap.String("base_url", doc.BaseURL))
	return doc.Endpoints, nil
}

// BaseURL returns the base URL resolved by the last successful Parse
func (p *SpecificationParser) BaseURL() string {
	return p.baseURL
}

// Raw returns the decoded document tree of the last successful Parse
func (p *SpecificationParser) Raw() map[string]any {
	return p.raw
}

// DecodeDocument decodes JSON or YAML content into a generic tree with string keys
func DecodeDocument(content []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	var node any
	if err := yaml.Unmarshal(content, &node); err != nil {
		return nil, fmt.Errorf("document is neither JSON nor YAML: %w", err)
	}
	root, ok := normalize(node).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be an object")
	}
	return root, nil
}

// normalize turns YAML maps with non-string keys (e.g. status codes) into string-keyed maps
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
