package cmd

import (
	"api-tester-mcp/internal/service"
	"api-tester-mcp/internal/types"

	"github.com/spf13/cobra"
)

func newDemoCmd(global *globalOptions) *cobra.Command {
	var (
		spec   specOptions
		seed   int64
		output string
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through the workflow with simulated results instead of network calls",
		Long: `demo ingests a specification, generates scenarios and test cases and
reports simulated results. Required variables that are not given with --env
get stand-in values. The same seed always yields the same results.`,
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
			svc := service.New(a.cfg, a.log.Logger)
			ingested, err := spec.ingest(ctx, svc)
			if err != nil {
				return err
			}
			if output == outputTable {
				renderSetup(cmd.ErrOrStderr(), ingested)
			}
			if err := fillDemoEnv(svc, ingested.SessionID); err != nil {
				return err
			}
			res, err := svc.SimulateRun(ctx, ingested.SessionID, seed)
			if err != nil {
				return err
			}
			if output == outputJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			sess, err := svc.Session(res.SessionID)
			if err != nil {
				return err
			}
			renderRun(cmd.OutOrStdout(), sess, res)
			return nil
		},
	}
	spec.bind(cmd)
	cmd.Flags().Int64Var(&seed, "seed", 42, "seed for the simulated results")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

// fillDemoEnv sets stand-in values for required variables left unset, so the
// simulated cases resolve
func fillDemoEnv(svc *service.Service, sessionID string) error {
	sess, err := svc.Session(sessionID)
	if err != nil {
		return err
	}
	vars := map[string]string{}
	for _, name := range sess.Analysis.Required.Names() {
		if sess.EnvVars[name] != "" {
			continue
		}
		if name == types.VarBaseURL {
			vars[name] = "https://api.example.com"
			continue
		}
		vars[name] = "demo-" + name
	}
	if len(vars) == 0 {
		return nil
	}
	_, err = svc.SetEnvVars(sessionID, vars)
	return err
}
