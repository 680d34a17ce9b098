package cmd

import (
	"api-tester-mcp/internal/scenario"
	"api-tester-mcp/internal/service"

	"github.com/spf13/cobra"
)

func newScenariosCmd(global *globalOptions) *cobra.Command {
	var (
		spec   specOptions
		opts   = scenario.DefaultOptions()
		output string
	)
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Print the scenarios generated for a specification",
		Args:  cobra.NoArgs,
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
			res, err := svc.GenerateScenarios(ctx, ingested.SessionID, opts)
			if err != nil {
				return err
			}
			if output == outputJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			renderScenarios(cmd.OutOrStdout(), res)
			return nil
		},
	}
	spec.bind(cmd)
	cmd.Flags().BoolVar(&opts.IncludeNegative, "negative", opts.IncludeNegative, "generate unauthorized scenarios")
	cmd.Flags().BoolVar(&opts.IncludeEdge, "edge-cases", opts.IncludeEdge, "generate edge case scenarios")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format: table or json")
	return cmd
}
