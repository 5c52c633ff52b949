package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/strategicvalueplus/scout/internal/api"
	"github.com/strategicvalueplus/scout/internal/app"
	"github.com/strategicvalueplus/scout/internal/metrics"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supplier search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var metricsSrv *metrics.Server
			if cfg.Server.MetricsPort > 0 {
				metricsSrv = metrics.Start(cfg.Server.MetricsPort, logger)
				logger.Info("metrics listening", "port", cfg.Server.MetricsPort)
			}

			router := api.SetupRouter(api.RouterConfig{
				Environment:    cfg.Server.Environment,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				ServeMetrics:   cfg.Server.MetricsPort == 0,
			}, a.Handler())

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening",
					"addr", srv.Addr,
					"environment", cfg.Server.Environment,
					"sources", a.Aggregator.Sources(),
					"cache", cfg.Cache.Type,
					"storage", cfg.Storage.Backend,
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server forced to shutdown", "err", err)
			}
			if err := metricsSrv.Stop(shutdownCtx); err != nil {
				logger.Error("metrics server forced to shutdown", "err", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "override server.port")
	return cmd
}
