package cmd

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/monx-observability/fleet-telemetry/internal/common"
	"github.com/monx-observability/fleet-telemetry/internal/config"
	"github.com/monx-observability/fleet-telemetry/internal/factory"
	"github.com/monx-observability/fleet-telemetry/internal/log"
	"github.com/monx-observability/fleet-telemetry/internal/version"
)

var conf *config.Config

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Collect every source, publish merged snapshots and serve them over http",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		conf, err = config.Parse(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to parse config %s: %w", cfgFile, err)
		}

		// Init logger
		err = log.Init(conf.Logs)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		logger := log.Logger()

		// Dump generic information
		logger.Info("Starting fleet telemetry",
			"version", version.Info(),
			"buildContext", version.BuildContext(),
		)
		logger.Info("Using config", "config", fmt.Sprintf("%+v", *conf))

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.Logger()

		// Align max procs and memory with the container limits
		err := common.TuneRuntime(logger)
		if err != nil {
			logger.Error(err, "failed to tune runtime")

			return err
		}

		// Listen to sigterm and interrupt signals
		ctx := common.SetupSignalHandler(context.Background(), logger)

		// Metrics
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		err = version.RegisterCollector(registry)
		if err != nil {
			return fmt.Errorf("failed to register version collector: %w", err)
		}

		// Create engine
		initCtx, cancel := context.WithTimeout(ctx, conf.DefaultTimeout)
		defer cancel()

		engine, closeFunc, err := factory.CreateEngine(initCtx, *conf, registry, clockwork.NewRealClock())
		if err != nil {
			logger.Error(err, "failed to create engine")

			return err
		}

		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), conf.GracefulDuration)
			defer cancel()

			err := closeFunc(closeCtx)
			if err != nil {
				logger.Error(err, "failed to release resources")
			}
		}()

		// Start engine
		err = engine.Start(ctx)
		if err != nil {
			logger.Error(err, "engine stopped")

			return err
		}

		logger.V(2).Info("Processing stopped")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
