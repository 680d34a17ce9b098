package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"api-tester-mcp/internal/parser"
	"api-tester-mcp/internal/service"
	"api-tester-mcp/internal/types"

	"github.com/spf13/cobra"
)

// specOptions are the flags shared by commands that ingest a specification
type specOptions struct {
	specPath string
	specType string
	env      []string
}

func (o *specOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.specPath, "spec", "s", "", "path to the OpenAPI document or Postman collection")
	cmd.Flags().StringVarP(&o.specType, "type", "t", "", "specification type: openapi or postman (detected when empty)")
	cmd.Flags().StringArrayVarP(&o.env, "env", "e", nil, "environment variable as key=value, repeatable")
	_ = cmd.MarkFlagRequired("spec")
}

// ingest reads the specification, opens a session and applies --env
func (o *specOptions) ingest(ctx context.Context, svc *service.Service) (*service.IngestResult, error) {
	content, err := os.ReadFile(o.specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification: %w", err)
	}
	specType := o.specType
	if specType == "" {
		specType = string(detectSpecType(o.specPath, content))
	}
	env, err := parseEnv(o.env)
	if err != nil {
		return nil, err
	}

	res, err := svc.IngestSpec(ctx, specType, string(content))
	if err != nil {
		return nil, err
	}
	if len(env) > 0 {
		if _, err := svc.SetEnvVars(res.SessionID, env); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// detectSpecType recognizes Postman collections by their info schema or
// top level item list; everything else is treated as OpenAPI
func detectSpecType(path string, content []byte) types.SpecType {
	if strings.Contains(strings.ToLower(filepath.Base(path)), "postman") {
		return types.SpecPostman
	}
	raw, err := parser.DecodeDocument(content)
	if err != nil {
		return types.SpecOpenAPI
	}
	if _, ok := raw["openapi"]; ok {
		return types.SpecOpenAPI
	}
	if _, ok := raw["swagger"]; ok {
		return types.SpecOpenAPI
	}
	if info, ok := raw["info"].(map[string]any); ok {
		if schema, _ := info["schema"].(string); strings.Contains(schema, "getpostman.com") {
			return types.SpecPostman
		}
		if _, ok := info["_postman_id"]; ok {
			return types.SpecPostman
		}
	}
	if _, ok := raw["item"]; ok {
		return types.SpecPostman
	}
	return types.SpecOpenAPI
}
