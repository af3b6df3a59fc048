package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Rainking6693/autobolt-scheduler/config"
	"github.com/Rainking6693/autobolt-scheduler/internal/adapters/jobrunner"
	schedrunner "github.com/Rainking6693/autobolt-scheduler/internal/adapters/scheduler"
	"github.com/Rainking6693/autobolt-scheduler/internal/adapters/snapshotter"
	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/data"
	"github.com/Rainking6693/autobolt-scheduler/internal/devseed"
	"github.com/Rainking6693/autobolt-scheduler/internal/service"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Scheduler     *service.Scheduler
	Runner        core.JobRunner
	Observability ObservabilityContainer
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// InitServices wires the scheduler and its collaborators from configuration.
func InitServices(deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(logger, deps.Config.Observability)

	// TODO: replace with a runner that drives real directory submissions
	// once the submission worker lands. The scripted runner replays its
	// configured steps and then succeeds every job.
	runner := jobrunner.NewScriptedRunner()
	if deps.Config.IsDev {
		logger.Info("dev mode: job executions are simulated")
	}

	schedCfg := deps.Config.Scheduler.Build()

	opts := service.SchedulerOptions{
		Config:   &schedCfg,
		Runner:   runner,
		Logger:   logger,
		Clock:    &data.RealTimeProvider{},
		Notifier: obs.Notifier,
	}
	if obs.MetricsSink != nil {
		opts.Metrics = obs.MetricsSink
	}

	sched, err := service.NewScheduler(opts)
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	return &ServiceContainer{
		Scheduler:     sched,
		Runner:        runner,
		Observability: obs,
	}, nil
}

// ServiceOrchestrationConfig groups everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    *ServiceContainer
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal is received or a service
// fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	if cfg.Services == nil {
		return errors.New("service orchestration config missing services")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, runCtx := errgroup.WithContext(ctx)

	if cfg.Config.IsDev && cfg.Config.IsSchedulerEnabled() {
		if seedErr := devseed.Run(runCtx, cfg.Services.Scheduler, logger); seedErr != nil {
			logger.Error("dev seeding failed", "error", seedErr)
		}
	}

	if cfg.Config.IsSchedulerEnabled() {
		tickRunner, err := schedrunner.NewRunner(schedrunner.RunnerOptions{
			Scheduler: cfg.Services.Scheduler,
			Interval:  cfg.Config.Scheduler.Interval,
			Logger:    logger,
			Metrics:   cfg.Services.Observability.MetricsSink,
		})
		if err != nil {
			return fmt.Errorf("init tick runner: %w", err)
		}
		logger.Info("starting scheduler", "interval", cfg.Config.Scheduler.Interval.String())
		g.Go(func() error {
			return tickRunner.Run(runCtx)
		})
	}

	if cfg.Config.IsSnapshotterEnabled() {
		snapRunner, err := buildSnapshotRunner(cfg, logger)
		if err != nil {
			return err
		}
		if restoreErr := snapRunner.RestoreOnStart(runCtx); restoreErr != nil {
			logger.Error("state restore failed, continuing with empty scheduler", "error", restoreErr)
		}
		logger.Info("starting snapshotter", "interval", cfg.Config.Scheduler.SnapshotInterval.String())
		g.Go(func() error {
			return snapRunner.Run(runCtx)
		})
	}

	err := g.Wait()

	if sink := cfg.Services.Observability.MetricsSink; sink != nil {
		if closeErr := sink.Close(); closeErr != nil {
			logger.Error("failed to close metrics sink", "error", closeErr)
		}
	}

	if err != nil {
		logger.Error("service error", "error", err)
		return err
	}

	logger.Info("services stopped")
	return nil
}

// buildSnapshotRunner wires the snapshot runner against the redis state
// store. The snapshotter requires a reachable redis.
func buildSnapshotRunner(cfg *ServiceOrchestrationConfig, logger *slog.Logger) (*snapshotter.Runner, error) {
	if cfg.RedisClient == nil {
		return nil, errors.New("snapshotter requires a redis connection")
	}

	store, err := data.NewRedisStateStore(data.RedisStateStoreOptions{
		Client: cfg.RedisClient,
		Key:    cfg.Config.Redis.StateKey,
		TTL:    cfg.Config.Redis.StateTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init state store: %w", err)
	}

	runner, err := snapshotter.NewRunner(snapshotter.RunnerOptions{
		Exporter: cfg.Services.Scheduler,
		Store:    store,
		Interval: cfg.Config.Scheduler.SnapshotInterval,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init snapshot runner: %w", err)
	}
	return runner, nil
}
