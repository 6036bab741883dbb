package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appcompliance "github.com/medregula/casetrack/internal/application/compliance"
	"github.com/medregula/casetrack/internal/config"
	"github.com/medregula/casetrack/internal/infrastructure/database/postgres"
	"github.com/medregula/casetrack/internal/infrastructure/database/postgres/repositories"
	"github.com/medregula/casetrack/internal/infrastructure/messaging/kafka"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/prometheus"
)

// defaultSweepInterval applies when the worker runs without an explicit
// sweep.interval setting.
const defaultSweepInterval = 15 * time.Minute

func newWorkerCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background expiry sweep",
		Long:  "Periodically scans active cases whose registration deadline has passed\nand transitions them to EXPIRED.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config) error {
	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	log = log.Named("worker")

	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	store := repositories.NewStore(conn, log)
	metrics := prometheus.NewAppMetrics(prometheus.NewCollector())

	complianceOpts := []appcompliance.Option{appcompliance.WithMetrics(metrics)}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Config, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		complianceOpts = append(complianceOpts, appcompliance.WithPublisher(producer))
	}
	service := appcompliance.NewService(store, log, complianceOpts...)

	interval := cfg.Sweep.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("sweep worker started", logging.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		expired, err := service.SweepExpired(sigCtx)
		if err != nil {
			log.Error("sweep run failed", logging.Err(err))
			return
		}
		if expired > 0 {
			log.Info("sweep run finished", logging.Int("expired", expired))
		}
	}

	runOnce()
	for {
		select {
		case <-sigCtx.Done():
			log.Info("sweep worker stopping")
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}
