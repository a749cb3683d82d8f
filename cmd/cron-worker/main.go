package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/cron"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/config"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/metrics"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/migrate"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/redis"
)

const (
	serviceKind = "cron-worker"
	lockName    = "sweeps"
)

// mode selects between the long-running loop and one-shot invocations.
type mode struct {
	once bool
	job  string
}

func main() {
	var m mode
	flag.BoolVar(&m.once, "once", false, "run a single cycle and exit")
	flag.StringVar(&m.job, "job", "", "run only the named job once and exit")
	flag.Parse()

	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "config.load_failed", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Reconciler.Interval.String(),
	})

	if err := run(ctx, cfg, logg, m); err != nil {
		logg.Error(ctx, "cron_worker.failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, m mode) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	service, err := buildService(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	switch {
	case m.job != "":
		return service.RunJob(ctx, m.job)
	case m.once:
		return service.RunOnce(ctx)
	}

	logg.Info(ctx, "cron_worker.starting")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron_worker.stopped")
	return nil
}

// buildService registers every sweep behind a single redis lock so only one
// worker replica runs a cycle at a time.
func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	sweeper, err := buildSweeper(cfg, logg, dbClient, metrics.NewAssignmentMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, fmt.Errorf("wire reconciler: %w", err)
	}

	jobParams := cron.AssignmentJobParams{Logger: logg, Sweeper: sweeper}
	timeoutJob, err := cron.NewAssignmentTimeoutJob(jobParams)
	if err != nil {
		return nil, err
	}
	reminderJob, err := cron.NewAssignmentReminderJob(jobParams)
	if err != nil {
		return nil, err
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return nil, err
	}

	registry, err := cron.NewRegistry(timeoutJob, reminderJob, cleanupJob)
	if err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Reconciler.LockTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Reconciler.Interval,
	})
}
