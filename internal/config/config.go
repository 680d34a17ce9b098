package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"api-tester-mcp/internal/executor"
	"api-tester-mcp/internal/llm"
	"api-tester-mcp/internal/logger"
	"api-tester-mcp/internal/reporter"
	"api-tester-mcp/internal/seed"
	"api-tester-mcp/internal/types"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit configuration file is given
const DefaultPath = "config/config.yaml"

// Config holds the application configuration
type Config struct {
	Environment Environment     `yaml:"environment"`
	Test        TestConfig      `yaml:"test"`
	Reporting   ReportingConfig `yaml:"reporting"`
	Logging     logger.Config   `yaml:"logging"`
	LLM         LLMConfig       `yaml:"llm"`
	Database    DatabaseConfig  `yaml:"database"`
}

// Environment holds environment-specific configuration
type Environment struct {
	BaseURL string     `yaml:"base_url"`
	Auth    AuthConfig `yaml:"auth"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Type  string `yaml:"type"` // bearer, apikey, basic
	Token string `yaml:"token"`
}

// TestConfig holds test execution configuration
type TestConfig struct {
	Concurrent     bool          `yaml:"concurrent"`
	MaxWorkers     int           `yaml:"max_workers"`
	Timeout        time.Duration `yaml:"timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit"`
	Retry          RetryConfig   `yaml:"retry"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// ReportingConfig holds reporting configuration
type ReportingConfig struct {
	Format    []string `yaml:"format"`
	OutputDir string   `yaml:"output_dir"`
	Detailed  bool     `yaml:"detailed"`
}

// LLMConfig holds configuration for example enrichment through a language model
type LLMConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Provider string        `yaml:"provider"` // e.g., "openai"
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`    // e.g., "gpt-4"
	BaseURL  string        `yaml:"base_url"` // Optional, for custom endpoints
	Timeout  time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds configuration for example enrichment from database rows
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Type     string `yaml:"type"` // postgres, mysql, sqlserver
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Test: TestConfig{
			Concurrent:     true,
			MaxWorkers:     5,
			Timeout:        30 * time.Second,
			RequestTimeout: 10 * time.Second,
			Retry:          RetryConfig{Attempts: 1, Delay: time.Second},
		},
		Reporting: ReportingConfig{
			Format:    []string{"json", "html"},
			OutputDir: "output",
			Detailed:  true,
		},
		Logging: logger.Config{Level: "info", Format: "console", Output: "stderr"},
		LLM:     LLMConfig{Provider: "openai", Model: "gpt-4o-mini", Timeout: 30 * time.Second},
	}
}

// LoadConfig loads the configuration file and applies environment overrides.
// An empty path reads DefaultPath and falls back to defaults when it does not
// exist; an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	config := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv("AUTH_TOKEN"); token != "" {
		c.Environment.Auth.Token = token
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if level := os.Getenv("API_TESTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Test.MaxWorkers <= 0 {
		c.Test.MaxWorkers = d.Test.MaxWorkers
	}
	if c.Test.Timeout <= 0 {
		c.Test.Timeout = d.Test.Timeout
	}
	if c.Test.RequestTimeout <= 0 {
		c.Test.RequestTimeout = d.Test.RequestTimeout
	}
	if c.Test.Retry.Attempts <= 0 {
		c.Test.Retry.Attempts = d.Test.Retry.Attempts
	}
	if len(c.Reporting.Format) == 0 {
		c.Reporting.Format = d.Reporting.Format
	}
	if c.Reporting.OutputDir == "" {
		c.Reporting.OutputDir = d.Reporting.OutputDir
	}
	if c.Environment.Auth.Type == "" && c.Environment.Auth.Token != "" {
		c.Environment.Auth.Type = "bearer"
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	for _, f := range c.Reporting.Format {
		if f != "json" && f != "html" {
			return fmt.Errorf("unsupported report format %q", f)
		}
	}
	switch strings.ToLower(c.Environment.Auth.Type) {
	case "", "bearer", "apikey", "basic":
	default:
		return fmt.Errorf("unsupported auth type %q", c.Environment.Auth.Type)
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("llm enrichment is enabled but no API key is configured")
	}
	if c.Database.Enabled {
		switch c.Database.Type {
		case "postgres", "mysql", "sqlserver":
		default:
			return fmt.Errorf("unsupported database type %q", c.Database.Type)
		}
	}
	return nil
}

// InitialEnvVars seeds session variables from the environment section
func (c *Config) InitialEnvVars() map[string]string {
	vars := make(map[string]string)
	if c.Environment.BaseURL != "" {
		vars[types.VarBaseURL] = c.Environment.BaseURL
	}
	if c.Environment.Auth.Token == "" {
		return vars
	}
	switch strings.ToLower(c.Environment.Auth.Type) {
	case "apikey":
		vars[types.VarAuthAPIKey] = c.Environment.Auth.Token
	case "basic":
		vars[types.VarAuthBasic] = c.Environment.Auth.Token
	default:
		vars[types.VarAuthBearer] = c.Environment.Auth.Token
	}
	return vars
}

// ExecutorConfig converts the test section for the executor
func (c *Config) ExecutorConfig() executor.Config {
	return executor.Config{
		Concurrent:     c.Test.Concurrent,
		MaxWorkers:     c.Test.MaxWorkers,
		Timeout:        c.Test.Timeout,
		RequestTimeout: c.Test.RequestTimeout,
		RateLimit:      c.Test.RateLimit,
		Retry: executor.RetryConfig{
			Attempts: c.Test.Retry.Attempts,
			Delay:    c.Test.Retry.Delay,
		},
	}
}

// ReporterConfig converts the reporting section for the reporter
func (c *Config) ReporterConfig() reporter.ReportingConfig {
	return reporter.ReportingConfig{
		Format:    append([]string(nil), c.Reporting.Format...),
		OutputDir: c.Reporting.OutputDir,
		Detailed:  c.Reporting.Detailed,
	}
}

// LLMClientConfig converts the llm section for the example suggester
func (c *Config) LLMClientConfig() llm.Config {
	out := llm.NewDefaultConfig()
	if c.LLM.Provider != "" {
		out.Provider = c.LLM.Provider
	}
	if c.LLM.Model != "" {
		out.Model = c.LLM.Model
	}
	if c.LLM.Timeout > 0 {
		out.Timeout = c.LLM.Timeout
	}
	out.APIKey = c.LLM.APIKey
	out.BaseURL = c.LLM.BaseURL
	return out
}

// DBConfig converts the database section for the row sampler
func (c *Config) DBConfig() seed.DBConfig {
	return seed.DBConfig{
		Type:     c.Database.Type,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
	}
}
