package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"api-tester-mcp/internal/mcpserver"
	"api-tester-mcp/internal/metrics"
	"api-tester-mcp/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the test workflow as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			opts := a.suggesters(ctx)

			if metricsAddr != "" {
				rec, err := metrics.NewRecorder()
				if err != nil {
					return err
				}
				opts = append(opts, service.WithMetrics(rec))

				mux := http.NewServeMux()
				mux.Handle("/metrics", rec.Handler())
				srv := &http.Server{
					Addr:         metricsAddr,
					Handler:      mux,
					ReadTimeout:  5 * time.Second,
					WriteTimeout: 10 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error("metrics server stopped", zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.log.Info("metrics exposed", zap.String("addr", metricsAddr))
			}

			svc := service.New(a.cfg, a.log.Logger, opts...)
			return mcpserver.New(svc, a.log.Logger, version).ServeStdio()
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to expose Prometheus metrics on, e.g. :9090")
	return cmd
}
