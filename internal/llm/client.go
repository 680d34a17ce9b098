package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"api-tester-mcp/internal/logger"
	"api-tester-mcp/internal/types"
)

// Client suggests example values for endpoint inputs through a language model
type Client struct {
	config    Config
	logger    *logger.Logger
	completer completer
}

func newClient(config Config, log *logger.Logger, c completer) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{config: config, logger: log, completer: c}
}

// field is one input the model is asked to fill
type field struct {
	Ref      string   `json:"ref"`
	Type     string   `json:"type,omitempty"`
	Format   string   `json:"format,omitempty"`
	Enum     []any    `json:"enum,omitempty"`
	Required bool     `json:"required,omitempty"`
	Hints    []string `json:"hints,omitempty"`
}

// SuggestExamples asks the model for one realistic value per input field of
// the endpoint. The result is keyed by "<location>.<name>"; keys the endpoint
// does not declare are dropped. Credential parameters are never requested.
func (c *Client) SuggestExamples(ctx context.Context, ep types.Endpoint) (map[string]any, error) {
	fields := endpointFields(ep)
	if len(fields) == 0 {
		return nil, nil
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	prompt, err := buildPrompt(ep, fields)
	if err != nil {
		return nil, err
	}

	input := map[string]any{"endpoint": ep.Key(), "fields": len(fields)}
	response, err := c.completer.complete(ctx, prompt)
	if err != nil {
		c.logger.LogLLMInteraction("SuggestExamples", input, nil, err)
		return nil, fmt.Errorf("failed to suggest examples: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripFence(response)), &raw); err != nil {
		c.logger.LogLLMInteraction("SuggestExamples", input, nil, err)
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Ref] = true
	}
	examples := make(map[string]any)
	for k, v := range raw {
		if known[k] && v != nil {
			examples[k] = v
		}
	}

	c.logger.LogLLMInteraction("SuggestExamples", input, examples, nil)
	return examples, nil
}

func endpointFields(ep types.Endpoint) []field {
	var fields []field
	for _, p := range ep.Parameters {
		if p.Example != nil || ep.IsCredentialParam(p) {
			continue
		}
		f := field{Ref: types.FieldRef(p.In, p.Name), Type: p.Type, Required: p.Required}
		if p.Schema != nil {
			f.Format = p.Schema.Format
			f.Enum = p.Schema.Enum
			f.Hints = schemaHints(p.Schema)
		}
		fields = append(fields, f)
	}

	if ep.RequestBody != nil && ep.RequestBody.Schema != nil {
		s := ep.RequestBody.Schema
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop := s.Properties[name]
			if prop == nil || prop.Example != nil {
				continue
			}
			fields = append(fields, field{
				Ref:      types.FieldRef(types.LocationBody, name),
				Type:     prop.Type,
				Format:   prop.Format,
				Enum:     prop.Enum,
				Required: s.IsRequired(name),
				Hints:    schemaHints(prop),
			})
		}
	}
	return fields
}

func schemaHints(s *types.Schema) []string {
	var hints []string
	if s.MinLength > 0 {
		hints = append(hints, fmt.Sprintf("minLength %d", s.MinLength))
	}
	if s.MaxLength != nil {
		hints = append(hints, fmt.Sprintf("maxLength %d", *s.MaxLength))
	}
	if s.Minimum != nil {
		hints = append(hints, fmt.Sprintf("minimum %v", *s.Minimum))
	}
	if s.Maximum != nil {
		hints = append(hints, fmt.Sprintf("maximum %v", *s.Maximum))
	}
	return hints
}

func buildPrompt(ep types.Endpoint, fields []field) (string, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	summary := ep.Summary
	if summary == "" {
		summary = "(none)"
	}
	return fmt.Sprintf(`Generate one realistic example value for each input of this API operation.

**Endpoint**: %s
**Summary**: %s

### Inputs
%s

### Output Format:
Respond with a single JSON object whose keys are exactly the "ref" values above
and whose values respect each type, format, enum and hint.`,
		ep.Key(), summary, string(fieldsJSON)), nil
}

// stripFence removes a markdown code fence around a JSON answer
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
