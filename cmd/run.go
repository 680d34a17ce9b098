package cmd

import (
	"api-tester-mcp/internal/scenario"
	"api-tester-mcp/internal/service"

	"github.com/spf13/cobra"
)

func newRunCmd(global *globalOptions) *cobra.Command {
	var (
		spec      specOptions
		casesPath string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest a specification, generate scenarios and run them once",
		Example: `  api-tester-mcp run --spec petstore.yaml -e baseUrl=http://localhost:8080 -e auth_bearer=secret
  api-tester-mcp run --spec collection.json --type postman --cases output/test_cases/<id>.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			a, err := newApp(global)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			svc := service.New(a.cfg, a.log.Logger, a.suggesters(ctx)...)
			ingested, err := spec.ingest(ctx, svc)
			if err != nil {
				return err
			}
			if output == outputTable {
				renderSetup(cmd.ErrOrStderr(), ingested)
			}

			var res *service.RunResult
			if casesPath != "" {
				// scenarios give the loaded cases their report categories
				if _, err := svc.GenerateScenarios(ctx, ingested.SessionID, scenario.DefaultOptions()); err != nil {
					return err
				}
				res, err = svc.RunTestCases(ctx, ingested.SessionID, casesPath)
			} else {
				res, err = svc.RunAPITests(ctx, ingested.SessionID)
			}
			if err != nil {
				return err
			}
			return finishRun(cmd, svc, res, output)
		},
	}
	spec.bind(cmd)
	cmd.Flags().StringVar(&casesPath, "cases", "", "run a previously written test case file instead of generating cases")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

// finishRun prints the run and turns failed or errored tests into a non-zero exit
func finishRun(cmd *cobra.Command, svc *service.Service, res *service.RunResult, output string) error {
	if output == outputJSON {
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		sess, err := svc.Session(res.SessionID)
		if err != nil {
			return err
		}
		renderRun(cmd.OutOrStdout(), sess, res)
	}
	if res.Summary.Failed > 0 || res.Summary.Errors > 0 {
		return errTestsFailed
	}
	return nil
}
