package llm

import "time"

// Config represents the configuration for LLM integration
type Config struct {
	// Provider specifies which LLM provider to use (e.g., "openai")
	Provider string `json:"provider"`

	// APIKey is the API key for the LLM provider
	APIKey string `json:"api_key"`

	// Model specifies which model to use (e.g., "gpt-4o-mini")
	Model string `json:"model"`

	// BaseURL overrides the provider endpoint, e.g. for a proxy or a local server
	BaseURL string `json:"base_url,omitempty"`

	// Temperature controls the randomness of the output (0.0 to 1.0)
	Temperature float64 `json:"temperature"`

	// MaxTokens limits the length of the generated response
	MaxTokens int `json:"max_tokens"`

	Timeout time.Duration `json:"timeout"`
}

// NewDefaultConfig returns a default configuration
func NewDefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   1000,
		Timeout:     30 * time.Second,
	}
}
