package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"api-tester-mcp/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("API_TESTER_LOG_LEVEL", "")

	path := writeConfig(t, `
environment:
  base_url: https://api.example.com
  auth:
    type: apikey
    token: k-123
test:
  max_workers: 8
  timeout: 1m
reporting:
  format: [json]
logging:
  level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Test.MaxWorkers)
	assert.Equal(t, time.Minute, cfg.Test.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Test.RequestTimeout)
	assert.Equal(t, 1, cfg.Test.Retry.Attempts)
	assert.Equal(t, []string{"json"}, cfg.Reporting.Format)
	assert.Equal(t, "output", cfg.Reporting.OutputDir)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Equal(t, map[string]string{
		types.VarBaseURL:    "https://api.example.com",
		types.VarAuthAPIKey: "k-123",
	}, cfg.InitialEnvVars())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigDefaultPathFallback(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "")
	t.Setenv("API_TESTER_LOG_LEVEL", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Test.MaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.Test.Timeout)
	assert.Equal(t, []string{"json", "html"}, cfg.Reporting.Format)
	assert.True(t, cfg.Reporting.Detailed)
	assert.Empty(t, cfg.InitialEnvVars())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("API_TESTER_LOG_LEVEL", "warn")

	path := writeConfig(t, `
environment:
  auth:
    token: from-file
llm:
  enabled: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Environment.Auth.Token)
	assert.Equal(t, "bearer", cfg.Environment.Auth.Type)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "from-env", cfg.InitialEnvVars()[types.VarAuthBearer])
}

func TestValidate(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	tests := []struct {
		name string
		body string
	}{
		{"unknown report format", "reporting:\n  format: [pdf]\n"},
		{"unknown auth type", "environment:\n  auth:\n    type: digest\n"},
		{"llm without key", "llm:\n  enabled: true\n"},
		{"unknown database", "database:\n  enabled: true\n  type: oracle\n"},
		{"malformed yaml", "test: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestInitialEnvVarsBasic(t *testing.T) {
	cfg := Default()
	cfg.Environment.Auth = AuthConfig{Type: "basic", Token: "dXNlcjpwYXNz"}
	assert.Equal(t, map[string]string{types.VarAuthBasic: "dXNlcjpwYXNz"}, cfg.InitialEnvVars())
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Test.RateLimit = 2.5
	cfg.LLM = LLMConfig{APIKey: "sk", BaseURL: "http://localhost:8080/v1"}
	cfg.Database = DatabaseConfig{Type: "mysql", Host: "db", Port: 3306, Name: "app", User: "u", Password: "p"}

	ec := cfg.ExecutorConfig()
	assert.Equal(t, 5, ec.MaxWorkers)
	assert.Equal(t, 2.5, ec.RateLimit)
	assert.Equal(t, time.Second, ec.Retry.Delay)

	rc := cfg.ReporterConfig()
	assert.Equal(t, []string{"json", "html"}, rc.Format)
	assert.Equal(t, "output", rc.OutputDir)

	lc := cfg.LLMClientConfig()
	assert.Equal(t, "openai", lc.Provider)
	assert.Equal(t, "gpt-4o-mini", lc.Model)
	assert.Equal(t, "http://localhost:8080/v1", lc.BaseURL)

	dc := cfg.DBConfig()
	assert.Equal(t, "app", dc.Database)
	dsn, err := dc.DSN()
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/app", dsn)
}
