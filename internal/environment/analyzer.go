package environment

import (
	"fmt"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
)

// Analyzer derives the configuration a specification needs from an ordered rule table
type Analyzer struct {
	rules  []Rule
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer loaded with DefaultRules
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{logger: logger.Named("environment")}
	for _, r := range DefaultRules() {
		if err := a.Register(r); err != nil {
			panic(err)
		}
	}
	return a
}

// Register appends a rule; it takes effect after every rule registered before it
func (a *Analyzer) Register(r Rule) error {
	if err := r.compile(); err != nil {
		return err
	}
	a.rules = append(a.rules, r)
	return nil
}

// Analyze inspects the decoded specification. It never fails: a document
// without credential-like constructs yields empty variable lists.
func (a *Analyzer) Analyze(raw map[string]any, specType types.SpecType, baseURL string) types.EnvAnalysis {
	result := types.EnvAnalysis{
		Required: make(types.Variables, 0),
		Optional: make(types.Variables, 0),
	}

	emitted := make(map[string]bool)
	for _, c := range collectConstructs(raw, specType, baseURL) {
		rule := a.firstMatch(c)
		if rule == nil {
			continue
		}
		name := rule.variableName(c)
		if name == "" || emitted[name] {
			continue
		}
		emitted[name] = true

		shown := c
		if mask.IsSensitive(name) || mask.IsSensitive(c.Name) {
			shown.Value = mask.Token
		}
		description, err := rule.describe(shown)
		if err != nil {
			a.logger.Warn("failed to render variable description", zap.String("rule", rule.ID), zap.Error(err))
			description = name
		}
		req := types.EnvVarRequirement{
			Name:        name,
			Description: description,
			Priority:    rule.priority(c),
			Source:      sourceOf(c),
		}
		if rule.Detect && c.HasValue && c.Value != "" && !mask.IsSensitive(name) {
			value := c.Value
			req.DetectedValue = &value
		}

		if req.Priority == types.PriorityRequired {
			result.Required = append(result.Required, req)
		} else {
			result.Optional = append(result.Optional, req)
		}
	}

	result.Summary = fmt.Sprintf("%d required, %d optional", len(result.Required), len(result.Optional))
	a.logger.Debug("environment analyzed",
		zap.String("spec_type", string(specType)),
		zap.Strings("required", result.Required.Names()),
		zap.Strings("optional", result.Optional.Names()))
	return result
}

func (a *Analyzer) firstMatch(c Construct) *Rule {
	for i := range a.rules {
		if a.rules[i].matches(c) {
			return &a.rules[i]
		}
	}
	return nil
}

func sourceOf(c Construct) string {
	switch c.Kind {
	case KindSecurityScheme:
		return c.Source + ":" + c.Name
	case KindCollectionAuth:
		return c.Source + ":" + c.Type
	}
	return c.Source
}
