package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"api-tester-mcp/internal/config"
	"api-tester-mcp/internal/llm"
	"api-tester-mcp/internal/logger"
	"api-tester-mcp/internal/seed"
	"api-tester-mcp/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a failed command or at least one failed test.
	ExitCodeError = 1
)

// errTestsFailed is returned when a run completes with failed or errored tests
var errTestsFailed = errors.New("one or more tests failed")

var version = "dev"

// SetVersion sets the version reported by --version and the MCP server
func SetVersion(v string) {
	version = v
}

// globalOptions holds the persistent flags
type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "api-tester-mcp",
		Short: "Generate and run API tests from OpenAPI and Postman specifications",
		Long: `api-tester-mcp ingests an OpenAPI document or a Postman collection,
works out which base URL and credentials the API needs, generates positive,
unauthorized and edge case scenarios, runs them and renders JSON and HTML reports.

Run "serve" to expose the workflow as MCP tools over stdio.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "api-tester-mcp version %s\n" .Version}}`)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is "+config.DefaultPath+" when present)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newScenariosCmd(opts),
		newDemoCmd(opts),
	)
	return root
}

// Execute is the main entry point for the CLI application
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(ExitCodeError)
	}
}

// app bundles what every command needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	closers []func() error
}

func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &app{cfg: cfg, log: log}, nil
}

// suggesters opens the configured example enrichment sources. Sources that
// cannot be opened are logged and skipped.
func (a *app) suggesters(ctx context.Context) []service.Option {
	var opts []service.Option
	if a.cfg.Database.Enabled {
		sampler, err := seed.Open(ctx, a.cfg.DBConfig(), a.log.Logger)
		if err != nil {
			a.log.Warn("database enrichment disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, sampler.Close)
			opts = append(opts, service.WithSuggester(sampler))
		}
	}
	if a.cfg.LLM.Enabled {
		client, err := llm.NewClient(a.cfg.LLMClientConfig(), a.log)
		if err != nil {
			a.log.Warn("llm enrichment disabled", zap.Error(err))
		} else {
			opts = append(opts, service.WithSuggester(client))
		}
	}
	return opts
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
	_ = a.log.Close()
}

// parseEnv turns repeated key=value flags into a map
func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --env %q, expected key=value", p)
		}
		env[strings.TrimSpace(k)] = v
	}
	return env, nil
}
