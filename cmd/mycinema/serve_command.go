package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"mycinema/internal/catalog"
	"mycinema/internal/daemon"
	"mycinema/internal/logging"
	"mycinema/internal/metrics"
	"mycinema/internal/runner"
)

const logStreamCapacity = 2048

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled link refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if value := strings.TrimSpace(bind); value != "" {
				cfg.Paths.APIBind = value
			}

			hub := logging.NewStreamHub(logStreamCapacity)
			logger, err := logging.NewFromConfig(cfg, hub)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			collectorsSet := metrics.New(registry)

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			r, err := runner.New(cfg, store, runner.Options{Logger: logger, Metrics: collectorsSet})
			if err != nil {
				return err
			}
			d, err := daemon.New(cfg, r, daemon.Options{
				Logger:   logger,
				Metrics:  collectorsSet,
				Gatherer: registry,
				Stream:   hub,
			})
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if err := d.Start(runCtx); err != nil {
				return err
			}
			<-runCtx.Done()
			logger.Info("shutdown requested")
			d.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}
