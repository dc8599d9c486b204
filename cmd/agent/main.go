package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/elbv2"

	"github.com/fleetpilot/fleetpilot/api"
	"github.com/fleetpilot/fleetpilot/internal/agent"
	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/internal/metricsource"
	"github.com/fleetpilot/fleetpilot/internal/notify"
	"github.com/fleetpilot/fleetpilot/internal/orchestration"
	"github.com/fleetpilot/fleetpilot/internal/telemetry"
	"github.com/fleetpilot/fleetpilot/pkg/config"
	"github.com/fleetpilot/fleetpilot/pkg/database"
	"github.com/fleetpilot/fleetpilot/pkg/statestore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	once := flag.Bool("once", false, "run a single evaluation cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		if db == nil {
			return fmt.Errorf("migrations require database.enabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		if err := database.NewMigrator(db).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	sess, err := awsSession(cfg)
	if err != nil {
		return err
	}

	source := buildMetricSource(cfg, sess)
	defer source.Close()

	orch := buildOrchestration(cfg, sess)
	defer orch.Close()

	store, err := buildStateStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to build state store: %w", err)
	}
	defer store.Close()

	sink := buildSink(cfg)
	recorder := buildRecorder(db)

	var metrics *telemetry.Metrics
	if cfg.Prometheus.Enabled {
		metrics = telemetry.NewMetrics(cfg.Agent.ResourceID)
	}

	ag := agent.New(agent.Options{
		Config:   cfg,
		Source:   source,
		API:      orch,
		Store:    store,
		Sink:     sink,
		Recorder: recorder,
		Metrics:  metrics,
	})

	if *once {
		record := ag.RunCycle(context.Background())
		if record.HasErrors() {
			logger.Warnf("Cycle completed with %d error(s)", len(record.Errors))
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(*cfg, ag, db)
		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()
	}

	go ag.Run(ctx)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("Agent stopped gracefully")
	return nil
}

// awsSession builds the shared session when any configured component needs
// AWS. Simulator-plus-HTTP setups run without credentials.
func awsSession(cfg *config.Config) (*session.Session, error) {
	if cfg.Metrics.Type != "cloudwatch" && cfg.Orchestration.Type != "ecs" {
		return nil, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Orchestration.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

func buildMetricSource(cfg *config.Config, sess *session.Session) metricsource.Source {
	var inner metricsource.Source

	switch cfg.Metrics.Type {
	case "cloudwatch":
		inner = metricsource.NewCloudWatchSource(metricsource.CloudWatchConfig{
			Client:        cloudwatch.New(sess),
			Namespace:     cfg.Metrics.Namespace,
			ClusterName:   cfg.Orchestration.Cluster,
			ServiceName:   cfg.Orchestration.Service,
			PeriodSeconds: cfg.Metrics.PeriodSeconds,
		})
	default:
		inner = metricsource.NewHTTPSource(metricsource.HTTPSourceConfig{
			Endpoint:      cfg.Metrics.Endpoint,
			Timeout:       cfg.Metrics.Timeout,
			SamplesPath:   cfg.Metrics.JSONPaths.Samples,
			TimestampPath: cfg.Metrics.JSONPaths.Timestamp,
			RatePath:      cfg.Metrics.JSONPaths.RequestRate,
			CPUPath:       cfg.Metrics.JSONPaths.CPU,
		})
	}

	return metricsource.NewResilientSource(metricsource.ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   cfg.Metrics.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Metrics.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Metrics.RetryAttempts,
		RetryDelay:    cfg.Metrics.RetryDelay,
	})
}

func buildOrchestration(cfg *config.Config, sess *session.Session) orchestration.API {
	if cfg.Orchestration.Type == "ecs" {
		return orchestration.NewECSClient(orchestration.ECSConfig{
			ECS:            ecs.New(sess),
			ELB:            elbv2.New(sess),
			Cluster:        cfg.Orchestration.Cluster,
			TargetGroupARN: cfg.Orchestration.TargetGroupARN,
			DrainGrace:     cfg.Health.DrainGracePeriod,
		})
	}

	sim := orchestration.NewSimulator()
	sim.InitializeResource(cfg.Agent.ResourceID, cfg.Policy.MinCapacity)
	return sim
}

func buildStateStore(cfg *config.Config) (statestore.Store, error) {
	if cfg.StateStore.Type == "redis" {
		return statestore.NewRedisStore(statestore.RedisConfig{
			Addr:     cfg.StateStore.RedisAddr,
			Password: cfg.StateStore.RedisPassword,
			DB:       cfg.StateStore.RedisDB,
			TTL:      cfg.StateStore.TTL,
		})
	}
	return statestore.NewMemoryStore(), nil
}

func buildSink(cfg *config.Config) notify.Sink {
	if cfg.Notify.SlackWebhook != "" {
		return notify.NewSlackSink(notify.SlackConfig{
			Webhook: cfg.Notify.SlackWebhook,
			Timeout: cfg.Notify.Timeout,
		})
	}
	return notify.NewLogSink()
}

func buildRecorder(db *database.DB) telemetry.Recorder {
	if db != nil {
		return telemetry.NewPostgresRecorder(db)
	}
	return telemetry.NewLogRecorder()
}
