package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/types"

	"go.uber.org/zap"
)

// Suggestion is one analyzed variable together with its current state
type Suggestion struct {
	types.EnvVarRequirement
	CurrentlySet bool    `json:"currently_set"`
	CurrentValue *string `json:"current_value"`
}

// Suggestions renders as a JSON object keyed by variable name, in analysis order
type Suggestions []Suggestion

// MarshalJSON keeps analysis order instead of sorting keys
func (s Suggestions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sg := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sg.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(sg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal suggestion %s: %w", sg.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SuggestionsResult is returned by GetEnvVarSuggestions
type SuggestionsResult struct {
	Success              bool        `json:"success"`
	SessionID            string      `json:"session_id"`
	SuggestedVariables   Suggestions `json:"suggested_variables"`
	RequiredMissingCount int         `json:"required_missing_count"`
	TotalSuggestions     int         `json:"total_suggestions"`
	SetupInstructions    []string    `json:"setup_instructions"`
	AnalysisSummary      string      `json:"analysis_summary"`
}

// GetEnvVarSuggestions reports every analyzed variable with its current
// state and instructions for the ones still missing. Credential values are
// masked.
func (s *Service) GetEnvVarSuggestions(sessionID string) (*SuggestionsResult, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var suggestions Suggestions
	var missing []types.EnvVarRequirement
	for _, v := range sess.Analysis.All() {
		sg := Suggestion{EnvVarRequirement: v}
		if mask.IsSensitive(v.Name) {
			sg.DetectedValue = nil
		}
		if isSet(sess.EnvVars, v.Name) {
			sg.CurrentlySet = true
			cur := mask.Value(v.Name, sess.EnvVars[v.Name])
			sg.CurrentValue = &cur
		} else if v.Priority == types.PriorityRequired {
			missing = append(missing, sg.EnvVarRequirement)
		}
		suggestions = append(suggestions, sg)
	}

	return &SuggestionsResult{
		Success:              true,
		SessionID:            sessionID,
		SuggestedVariables:   suggestions,
		RequiredMissingCount: len(missing),
		TotalSuggestions:     len(suggestions),
		SetupInstructions:    setupInstructions(missing),
		AnalysisSummary:      sess.Analysis.Summary,
	}, nil
}

func setupInstructions(missing []types.EnvVarRequirement) []string {
	if len(missing) == 0 {
		return []string{"All required environment variables are configured."}
	}

	lines := []string{"Required environment variables missing:"}
	example := make(map[string]string, len(missing))
	for _, v := range missing {
		lines = append(lines, "  • "+describe(v))
		example[v.Name] = exampleValue(v)
	}
	payload, _ := json.MarshalIndent(map[string]any{"variables": example}, "", "  ")
	lines = append(lines,
		"Use the set_env_vars tool to configure these variables:",
		"  set_env_vars "+string(payload))
	return lines
}

func exampleValue(v types.EnvVarRequirement) string {
	if v.DetectedValue != nil && !mask.IsSensitive(v.Name) {
		return *v.DetectedValue
	}
	switch v.Name {
	case types.VarAuthBearer:
		return "your-bearer-token"
	case types.VarAuthAPIKey:
		return "your-api-key"
	case types.VarAuthBasic:
		return "base64-encoded-credentials"
	}
	return "your-value"
}

// SetEnvResult is returned by SetEnvVars. Credential values are masked.
type SetEnvResult struct {
	Success          bool              `json:"success"`
	SessionID        string            `json:"session_id"`
	VariablesSet     []string          `json:"variables_set"`
	VariablesRemoved []string          `json:"variables_removed,omitempty"`
	CurrentVariables map[string]string `json:"current_variables"`
	RequiredMissing  []string          `json:"required_missing"`
}

// SetEnvVars merges variables into the session. An empty value removes the
// variable.
func (s *Service) SetEnvVars(sessionID string, vars map[string]string) (*SetEnvResult, error) {
	for name := range vars {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("variable names must not be empty")
		}
	}

	result := &SetEnvResult{Success: true, SessionID: sessionID, VariablesSet: []string{}}
	sess, err := s.store.Update(sessionID, func(ts *types.TestSession) error {
		if ts.EnvVars == nil {
			ts.EnvVars = make(map[string]string)
		}
		for name, value := range vars {
			if value == "" {
				delete(ts.EnvVars, name)
				result.VariablesRemoved = append(result.VariablesRemoved, name)
				continue
			}
			ts.EnvVars[name] = value
			result.VariablesSet = append(result.VariablesSet, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(result.VariablesSet)
	sort.Strings(result.VariablesRemoved)
	result.CurrentVariables = mask.Map(sess.EnvVars)
	result.RequiredMissing = requiredMissing(sess)

	s.logger.Info("environment variables updated",
		zap.String("session_id", sessionID),
		zap.Strings("set", result.VariablesSet),
		zap.Strings("removed", result.VariablesRemoved))
	return result, nil
}

func requiredMissing(sess *types.TestSession) []string {
	missing := []string{}
	for _, v := range sess.Analysis.Required {
		if !isSet(sess.EnvVars, v.Name) {
			missing = append(missing, v.Name)
		}
	}
	return missing
}
