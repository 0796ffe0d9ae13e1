package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/costpilot/internal/api"
	"github.com/pratik-mahalle/costpilot/internal/worker"
)

func newServeCmd() *cobra.Command {
	var runNow bool
	var reportRetention int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and ops HTTP server",
		Long: `Starts the cron scheduler, which runs the detection and remediation
cycle on the configured schedule, and the ops HTTP server exposing health,
run reports and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store := api.NewReportStore(reportRetention)
			runner := buildRunner(cfg, log, false, store.Add)

			scheduler, err := worker.NewScheduler(runner, cfg.Schedule, log)
			if err != nil {
				return err
			}
			if err := scheduler.Start(ctx); err != nil {
				return err
			}

			if runNow {
				go runner.RunOnce(ctx)
			}

			server := api.NewServer(cfg.Server, store, log)
			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				scheduler.Stop()
				return err
			case <-ctx.Done():
			}

			log.Info("Shutting down")
			scheduler.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one cycle immediately instead of waiting for the first tick")
	cmd.Flags().IntVar(&reportRetention, "report-retention", 20, "number of run reports kept in memory")
	return cmd
}
