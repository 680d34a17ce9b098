package llm

import (
	"fmt"

	"api-tester-mcp/internal/logger"
)

// NewClient creates a new LLM client based on the provider
func NewClient(config Config, log *logger.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing API key for LLM provider %q", config.Provider)
	}
	switch config.Provider {
	case "openai", "":
		return newClient(config, log, newOpenAICompleter(config)), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}
