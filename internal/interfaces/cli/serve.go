package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appcompliance "github.com/medregula/casetrack/internal/application/compliance"
	"github.com/medregula/casetrack/internal/application/dashboard"
	"github.com/medregula/casetrack/internal/config"
	"github.com/medregula/casetrack/internal/infrastructure/database/postgres"
	"github.com/medregula/casetrack/internal/infrastructure/database/postgres/repositories"
	"github.com/medregula/casetrack/internal/infrastructure/database/redis"
	"github.com/medregula/casetrack/internal/infrastructure/messaging/kafka"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/prometheus"
	httpiface "github.com/medregula/casetrack/internal/interfaces/http"
	"github.com/medregula/casetrack/internal/interfaces/http/handlers"
)

func newServeCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the compliance API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	store := repositories.NewStore(conn, log)

	collector := prometheus.NewCollector()
	metrics := prometheus.NewAppMetrics(collector)

	health := map[string]handlers.HealthChecker{
		"database": conn,
	}

	complianceOpts := []appcompliance.Option{appcompliance.WithMetrics(metrics)}
	dashboardOpts := []dashboard.Option{}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis.Config, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		health["redis"] = redisClient
		dashboardOpts = append(dashboardOpts, dashboard.WithCache(redis.NewCache(redisClient, log)))
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Config, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		complianceOpts = append(complianceOpts, appcompliance.WithPublisher(producer))
	}

	complianceSvc := appcompliance.NewService(store, log, complianceOpts...)
	dashboardSvc := dashboard.NewService(store, log, dashboardOpts...)

	router := httpiface.NewRouter(httpiface.RouterConfig{
		Logger:          log,
		Case:            handlers.NewCaseHandler(complianceSvc),
		Dashboard:       handlers.NewDashboardHandler(dashboardSvc),
		Admin:           handlers.NewAdminHandler(complianceSvc),
		Health:          handlers.NewHealthHandler(health),
		MetricsHandler:  collector.Handler(),
		MetricsRecorder: metrics,
	})

	server := httpiface.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	return server.Shutdown(context.Background())
}
